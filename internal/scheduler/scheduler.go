// Package scheduler runs the periodic work-summary loop: once per tick it
// walks all active users, decides per user whether a daily or weekly summary
// is due in their local timezone, and delivers at most one email per user
// per period.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tasklane/tasklane/internal/allocations"
	"github.com/tasklane/tasklane/internal/mailer"
	"github.com/tasklane/tasklane/internal/models"
	"github.com/tasklane/tasklane/internal/sendlog"
	"github.com/tasklane/tasklane/internal/summary"
	"github.com/tasklane/tasklane/internal/workweek"
)

// UserDirectory lists the users eligible for summaries.
type UserDirectory interface {
	ActiveUsersWithEmail(ctx context.Context) ([]models.User, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)
}

// Preferences answers opt-in checks. Implementations default to true when no
// preference is stored.
type Preferences interface {
	WantsEmail(ctx context.Context, userID uint, settingKey string) bool
}

// AllocationSource provides the aggregated allocation reads.
type AllocationSource interface {
	ForDay(ctx context.Context, userID uint, dateKey string) ([]allocations.Entry, error)
	ForWeek(ctx context.Context, userID uint, startKey, endKey string) ([]allocations.Entry, error)
	DailyBreakdown(ctx context.Context, userID uint, weekStart time.Time) ([7]allocations.DayTotal, error)
}

// SendLedger is the at-most-once send log.
type SendLedger interface {
	HasBeenSent(ctx context.Context, userID uint, kind, periodKey string) (bool, error)
	RecordSent(ctx context.Context, userID uint, kind, periodKey string, details sendlog.Details) error
	PruneOlderThan(ctx context.Context, days int)
}

// TickLock claims a tick across scheduler instances. Acquire returns false
// when another instance already owns the current tick.
type TickLock interface {
	Acquire(ctx context.Context) (bool, error)
}

// Deps are the collaborators a Scheduler needs. TickLock may be nil.
type Deps struct {
	Users       UserDirectory
	Preferences Preferences
	Allocations AllocationSource
	Ledger      SendLedger
	Mailer      mailer.Mailer
	TickLock    TickLock
}

// Scheduler owns its own timer and running flag so independent instances
// (such as in tests) never collide through shared state.
type Scheduler struct {
	interval time.Duration
	logger   *slog.Logger
	deps     Deps
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// New creates a Scheduler. It does not start ticking until Start is called.
func New(interval time.Duration, logger *slog.Logger, deps Deps) *Scheduler {
	return &Scheduler{
		interval: interval,
		logger:   logger,
		deps:     deps,
		now:      time.Now,
	}
}

// Start launches the loop: one tick immediately, then one per interval.
// Calling Start on a running scheduler is a warned no-op, never a second
// concurrent loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("Summary scheduler already running, ignoring Start")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	go s.loop(s.stopCh)
	s.logger.Info("Summary scheduler started", "interval", s.interval.String())
}

// Stop prevents any future tick from starting. An in-flight tick is allowed
// to finish. Stop is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.logger.Info("Summary scheduler stopped")
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	s.RunTick(context.Background())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.RunTick(context.Background())
		}
	}
}

// RunTick executes one full scheduling pass. It never panics outward and
// never lets one user's failure abort the rest.
func (s *Scheduler) RunTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Summary tick panicked", "panic", fmt.Sprint(r))
		}
	}()

	if s.deps.TickLock != nil {
		ok, err := s.deps.TickLock.Acquire(ctx)
		if err != nil {
			s.logger.Warn("Tick lock unavailable, proceeding without it", "error", err.Error())
		} else if !ok {
			s.logger.Debug("Tick already claimed by another instance, skipping")
			return
		}
	}

	// Best-effort housekeeping; the ledger logs its own failures.
	s.deps.Ledger.PruneOlderThan(ctx, sendlog.DefaultRetentionDays)

	users, err := s.deps.Users.ActiveUsersWithEmail(ctx)
	if err != nil {
		s.logger.Error("Failed to load users for summary tick", "error", err.Error())
		return
	}

	now := s.now()
	for i := range users {
		s.processUser(ctx, &users[i], now)
	}
}

func (s *Scheduler) processUser(ctx context.Context, user *models.User, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Summary processing panicked for user",
				"user_id", user.ID, "email", user.Email, "panic", fmt.Sprint(r))
		}
	}()

	local := workweek.LocalNow(now, user.Timezone)
	profile := workweek.NewProfile(user)
	weekday := local.Weekday()

	// Not a work day: neither summary can trigger today. The weekly trigger
	// day is by definition a work day, so it is gated here too.
	if profile.HoursFor(weekday) <= 0 {
		return
	}

	// The trigger window is the single hour matching today's start time.
	if workweek.StartHour(profile.StartFor(weekday)) != local.Hour() {
		return
	}

	todayKey := workweek.DateKey(local)

	if err := s.sendDaily(ctx, user, todayKey); err != nil {
		s.logger.Error("Daily summary failed",
			"user_id", user.ID, "email", user.Email, "date", todayKey, "error", err.Error())
	}

	if first, ok := profile.FirstWorkDay(); ok && weekday == first {
		if err := s.sendWeekly(ctx, user, local); err != nil {
			s.logger.Error("Weekly summary failed",
				"user_id", user.ID, "email", user.Email, "error", err.Error())
		}
	}
}

func (s *Scheduler) sendDaily(ctx context.Context, user *models.User, todayKey string) error {
	if !s.deps.Preferences.WantsEmail(ctx, user.ID, models.SettingDailyWorkSummary) {
		return nil
	}

	sent, err := s.deps.Ledger.HasBeenSent(ctx, user.ID, models.SummaryKindDaily, todayKey)
	if err != nil {
		return fmt.Errorf("ledger check failed: %w", err)
	}
	if sent {
		return nil
	}

	entries, err := s.deps.Allocations.ForDay(ctx, user.ID, todayKey)
	if err != nil {
		return fmt.Errorf("failed to load allocations: %w", err)
	}

	email, err := summary.RenderDaily(user.DisplayName(), todayKey, entries)
	if err != nil {
		return err
	}

	return s.deliverAndRecord(ctx, user, models.SummaryKindDaily, todayKey, email, entries)
}

func (s *Scheduler) sendWeekly(ctx context.Context, user *models.User, local time.Time) error {
	if !s.deps.Preferences.WantsEmail(ctx, user.ID, models.SettingWeeklyWorkSummary) {
		return nil
	}

	weekStart, weekEnd := workweek.WeekOf(local)
	startKey := workweek.DateKey(weekStart)
	endKey := workweek.DateKey(weekEnd)

	sent, err := s.deps.Ledger.HasBeenSent(ctx, user.ID, models.SummaryKindWeekly, startKey)
	if err != nil {
		return fmt.Errorf("ledger check failed: %w", err)
	}
	if sent {
		return nil
	}

	entries, err := s.deps.Allocations.ForWeek(ctx, user.ID, startKey, endKey)
	if err != nil {
		return fmt.Errorf("failed to load allocations: %w", err)
	}

	breakdown, err := s.deps.Allocations.DailyBreakdown(ctx, user.ID, weekStart)
	if err != nil {
		return fmt.Errorf("failed to load daily breakdown: %w", err)
	}

	email, err := summary.RenderWeekly(user.DisplayName(), startKey, endKey, entries, breakdown)
	if err != nil {
		return err
	}

	return s.deliverAndRecord(ctx, user, models.SummaryKindWeekly, startKey, email, entries)
}

func (s *Scheduler) deliverAndRecord(ctx context.Context, user *models.User, kind, periodKey string, email summary.Email, entries []allocations.Entry) error {
	messageID := uuid.New().String()

	err := s.deps.Mailer.Send(ctx, mailer.Message{
		To:        user.Email,
		ToName:    user.DisplayName(),
		Subject:   email.Subject,
		HTML:      email.HTML,
		MessageID: messageID,
	})
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	details := sendlog.Details{
		Subject:    email.Subject,
		TaskCount:  len(entries),
		TotalHours: totalHours(entries),
		MessageID:  messageID,
	}
	if err := s.deps.Ledger.RecordSent(ctx, user.ID, kind, periodKey, details); err != nil {
		// The email already went out; the next tick may send a duplicate.
		s.logger.Error("Summary sent but ledger record failed, duplicate possible next tick",
			"user_id", user.ID, "kind", kind, "period_key", periodKey, "error", err.Error())
		return nil
	}

	s.logger.Info("Summary sent",
		"user_id", user.ID, "kind", kind, "period_key", periodKey,
		"tasks", len(entries), "message_id", messageID)
	return nil
}

func totalHours(entries []allocations.Entry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Hours
	}
	return total
}
