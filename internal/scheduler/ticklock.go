package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const tickLockKey = "tasklane:summary:tick-lock"

// RedisTickLock claims ticks across scheduler instances with SETNX. The TTL
// stays below the tick interval so a claimed slot frees up before the next
// tick is due.
type RedisTickLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTickLock creates a tick lock for the given tick interval.
func NewRedisTickLock(client *redis.Client, interval time.Duration) *RedisTickLock {
	return &RedisTickLock{
		client: client,
		ttl:    interval * 9 / 10,
	}
}

// Acquire returns true when this instance owns the current tick.
func (l *RedisTickLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, tickLockKey, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire tick lock: %w", err)
	}
	return ok, nil
}
