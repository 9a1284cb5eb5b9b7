// Package sendlog is the durable at-most-once ledger for summary emails.
package sendlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/models"
)

// DefaultRetentionDays is how long send records are kept before pruning.
// Period keys only ever move forward, so pruned entries can never influence a
// future dedupe decision.
const DefaultRetentionDays = 60

// Details is a small audit blob stored alongside each send record.
type Details struct {
	Subject    string  `json:"subject"`
	TaskCount  int     `json:"task_count"`
	TotalHours float64 `json:"total_hours"`
	MessageID  string  `json:"message_id,omitempty"`
}

// Ledger records which (user, kind, period) summaries have been sent.
type Ledger struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New creates a Ledger.
func New(db *gorm.DB, logger *slog.Logger) *Ledger {
	return &Ledger{db: db, logger: logger}
}

// HasBeenSent reports whether a summary of the given kind has already been
// recorded for the user and period.
func (l *Ledger) HasBeenSent(ctx context.Context, userID uint, kind, periodKey string) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&models.SummarySend{}).
		Where("user_id = ? AND kind = ? AND period_key = ?", userID, kind, periodKey).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check send log: %w", err)
	}
	return count > 0, nil
}

// RecordSent appends a send record. Call it only after the transport has
// confirmed delivery. A duplicate-key violation means another instance beat
// us to the same period; that is logged and treated as success.
func (l *Ledger) RecordSent(ctx context.Context, userID uint, kind, periodKey string, details Details) error {
	blob, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal send details: %w", err)
	}

	entry := models.SummarySend{
		UserID:    userID,
		Kind:      kind,
		PeriodKey: periodKey,
		SentAt:    time.Now(),
		Details:   datatypes.JSON(blob),
	}

	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			l.logger.Warn("Send already recorded by another instance",
				"user_id", userID, "kind", kind, "period_key", periodKey)
			return nil
		}
		return fmt.Errorf("failed to record send: %w", err)
	}
	return nil
}

// PruneOlderThan deletes send records older than the given number of days.
// Pruning is best-effort housekeeping: failures are logged and swallowed so
// they can never abort a scheduler run.
func (l *Ledger) PruneOlderThan(ctx context.Context, days int) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result := l.db.WithContext(ctx).
		Unscoped().
		Where("sent_at < ?", cutoff).
		Delete(&models.SummarySend{})
	if result.Error != nil {
		l.logger.Error("Failed to prune send log", "error", result.Error.Error(), "cutoff", cutoff)
		return
	}
	if result.RowsAffected > 0 {
		l.logger.Info("Pruned send log", "deleted", result.RowsAffected, "cutoff", cutoff)
	}
}
