package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/mailer"
	"github.com/tasklane/tasklane/internal/models"
	"github.com/tasklane/tasklane/internal/summary"
	"github.com/tasklane/tasklane/internal/workweek"
)

// TestResult is the synchronous outcome of an on-demand test send.
type TestResult struct {
	OK      bool   `json:"success"`
	Message string `json:"message"`
}

// SendTest renders and sends a summary for the user right now, bypassing the
// trigger-hour check and the send log entirely: test sends are always
// allowed, never recorded, and never count toward the at-most-once
// guarantee. Failures come back in the result instead of being logged away.
func (s *Scheduler) SendTest(ctx context.Context, userID uint, kind string) TestResult {
	user, err := s.deps.Users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TestResult{Message: "user not found"}
		}
		return TestResult{Message: "failed to load user"}
	}
	if user.Email == "" {
		return TestResult{Message: "user has no email address"}
	}

	local := workweek.LocalNow(s.now(), user.Timezone)

	var email summary.Email
	switch kind {
	case models.SummaryKindDaily:
		todayKey := workweek.DateKey(local)
		entries, err := s.deps.Allocations.ForDay(ctx, user.ID, todayKey)
		if err != nil {
			return TestResult{Message: "failed to load allocations"}
		}
		email, err = summary.RenderDaily(user.DisplayName(), todayKey, entries)
		if err != nil {
			return TestResult{Message: "failed to render summary"}
		}

	case models.SummaryKindWeekly:
		// The current Monday-start week, regardless of whether today is the
		// user's first work day.
		weekStart, weekEnd := workweek.WeekOf(local)
		startKey := workweek.DateKey(weekStart)
		endKey := workweek.DateKey(weekEnd)

		entries, err := s.deps.Allocations.ForWeek(ctx, user.ID, startKey, endKey)
		if err != nil {
			return TestResult{Message: "failed to load allocations"}
		}
		breakdown, err := s.deps.Allocations.DailyBreakdown(ctx, user.ID, weekStart)
		if err != nil {
			return TestResult{Message: "failed to load daily breakdown"}
		}
		email, err = summary.RenderWeekly(user.DisplayName(), startKey, endKey, entries, breakdown)
		if err != nil {
			return TestResult{Message: "failed to render summary"}
		}

	default:
		return TestResult{Message: fmt.Sprintf("unknown summary kind %q", kind)}
	}

	err = s.deps.Mailer.Send(ctx, mailer.Message{
		To:        user.Email,
		ToName:    user.DisplayName(),
		Subject:   summary.TestPrefix + email.Subject,
		HTML:      email.HTML,
		MessageID: uuid.New().String(),
	})
	if err != nil {
		return TestResult{Message: fmt.Sprintf("sending failed: %v", err)}
	}

	return TestResult{OK: true, Message: fmt.Sprintf("test %s summary sent to %s", kind, user.Email)}
}
