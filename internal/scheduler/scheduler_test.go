package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/allocations"
	"github.com/tasklane/tasklane/internal/mailer"
	"github.com/tasklane/tasklane/internal/models"
	"github.com/tasklane/tasklane/internal/sendlog"
	"github.com/tasklane/tasklane/internal/summary"
	"github.com/tasklane/tasklane/internal/workweek"
)

type fakeDirectory struct {
	users   []models.User
	listErr error
}

func (f *fakeDirectory) ActiveUsersWithEmail(context.Context) ([]models.User, error) {
	return f.users, f.listErr
}

func (f *fakeDirectory) UserByID(_ context.Context, id uint) (*models.User, error) {
	for i := range f.users {
		if f.users[i].ID == id {
			return &f.users[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakePrefs struct {
	disabled map[string]bool // "userID:settingKey"
}

func (f *fakePrefs) WantsEmail(_ context.Context, userID uint, settingKey string) bool {
	return !f.disabled[fmt.Sprintf("%d:%s", userID, settingKey)]
}

type fakeAllocs struct {
	byDay  map[string][]allocations.Entry // "userID:dateKey"
	byWeek map[string][]allocations.Entry // "userID:startKey"
	errFor map[uint]error
}

func (f *fakeAllocs) ForDay(_ context.Context, userID uint, dateKey string) ([]allocations.Entry, error) {
	if err := f.errFor[userID]; err != nil {
		return nil, err
	}
	return f.byDay[fmt.Sprintf("%d:%s", userID, dateKey)], nil
}

func (f *fakeAllocs) ForWeek(_ context.Context, userID uint, startKey, _ string) ([]allocations.Entry, error) {
	if err := f.errFor[userID]; err != nil {
		return nil, err
	}
	return f.byWeek[fmt.Sprintf("%d:%s", userID, startKey)], nil
}

func (f *fakeAllocs) DailyBreakdown(_ context.Context, userID uint, weekStart time.Time) ([7]allocations.DayTotal, error) {
	if err := f.errFor[userID]; err != nil {
		return [7]allocations.DayTotal{}, err
	}
	var out [7]allocations.DayTotal
	for i := 0; i < 7; i++ {
		out[i].Date = workweek.DateKey(weekStart.AddDate(0, 0, i))
	}
	return out, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	entries   map[string]bool // "userID:kind:periodKey"
	checkErr  error
	recordErr error
	pruneRuns int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[string]bool)}
}

func ledgerKey(userID uint, kind, periodKey string) string {
	return fmt.Sprintf("%d:%s:%s", userID, kind, periodKey)
}

func (f *fakeLedger) HasBeenSent(_ context.Context, userID uint, kind, periodKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.entries[ledgerKey(userID, kind, periodKey)], nil
}

func (f *fakeLedger) RecordSent(_ context.Context, userID uint, kind, periodKey string, _ sendlog.Details) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.entries[ledgerKey(userID, kind, periodKey)] = true
	return nil
}

func (f *fakeLedger) PruneOlderThan(context.Context, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruneRuns++
}

func (f *fakeLedger) pruneCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pruneRuns
}

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// standardUser works Monday through Friday, 09:00 start, no timezone
// (server-local) unless overridden.
func standardUser(id uint, email string) models.User {
	u := models.User{
		Email:              email,
		FirstName:          "Test",
		LastName:           "User",
		Active:             true,
		WorkHoursMonday:    8,
		WorkHoursTuesday:   8,
		WorkHoursWednesday: 8,
		WorkHoursThursday:  8,
		WorkHoursFriday:    8,
	}
	u.ID = id
	u.WorkStartMonday = "09:00"
	u.WorkStartTuesday = "09:00"
	u.WorkStartWednesday = "09:00"
	u.WorkStartThursday = "09:00"
	u.WorkStartFriday = "09:00"
	return u
}

type fixture struct {
	sched  *Scheduler
	dir    *fakeDirectory
	prefs  *fakePrefs
	allocs *fakeAllocs
	ledger *fakeLedger
	mail   *fakeMailer
}

func newFixture(users []models.User, now time.Time) *fixture {
	f := &fixture{
		dir:    &fakeDirectory{users: users},
		prefs:  &fakePrefs{disabled: make(map[string]bool)},
		allocs: &fakeAllocs{byDay: map[string][]allocations.Entry{}, byWeek: map[string][]allocations.Entry{}, errFor: map[uint]error{}},
		ledger: newFakeLedger(),
		mail:   &fakeMailer{},
	}
	f.sched = New(time.Hour, testLogger(), Deps{
		Users:       f.dir,
		Preferences: f.prefs,
		Allocations: f.allocs,
		Ledger:      f.ledger,
		Mailer:      f.mail,
	})
	f.sched.now = func() time.Time { return now }
	return f
}

// monday9 is a Monday at 09:00 UTC.
var monday9 = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

func TestDailySummarySentAtTriggerHour(t *testing.T) {
	f := newFixture([]models.User{standardUser(1, "maria@example.com")}, monday9)
	f.allocs.byDay["1:2024-06-03"] = []allocations.Entry{
		{TaskID: 10, TaskName: "Write report", ProjectName: "Acme", Hours: 4},
	}

	f.sched.RunTick(context.Background())

	// Monday is also the first work day, so both summaries fire in one tick.
	require.Len(t, f.mail.sent, 2)
	assert.Equal(t, "maria@example.com", f.mail.sent[0].To)
	assert.Contains(t, f.mail.sent[0].Subject, "Your scheduled work")
	assert.Contains(t, f.mail.sent[0].HTML, "Write report")
	assert.Contains(t, f.mail.sent[1].Subject, "weekly work summary")

	assert.True(t, f.ledger.entries[ledgerKey(1, models.SummaryKindDaily, "2024-06-03")])
	assert.True(t, f.ledger.entries[ledgerKey(1, models.SummaryKindWeekly, "2024-06-03")])
	assert.Equal(t, 1, f.ledger.pruneRuns)
}

func TestAtMostOncePerPeriod(t *testing.T) {
	f := newFixture([]models.User{standardUser(1, "maria@example.com")}, monday9)

	f.sched.RunTick(context.Background())
	f.sched.RunTick(context.Background())

	// Second tick at the same instant must short-circuit on the ledger.
	assert.Len(t, f.mail.sent, 2)
}

func TestWorkDayGating(t *testing.T) {
	u := standardUser(1, "maria@example.com")
	u.WorkHoursMonday = 0
	f := newFixture([]models.User{u}, monday9)

	f.sched.RunTick(context.Background())

	// No work today means no daily and no weekly, opt-in notwithstanding.
	assert.Empty(t, f.mail.sent)
}

func TestTriggerHourPrecision(t *testing.T) {
	for _, hour := range []int{8, 10} {
		now := time.Date(2024, 6, 3, hour, 30, 0, 0, time.UTC)
		f := newFixture([]models.User{standardUser(1, "maria@example.com")}, now)

		f.sched.RunTick(context.Background())

		assert.Empty(t, f.mail.sent, "no send expected at hour %d", hour)
	}
}

func TestWeeklyFiresOnlyOnFirstWorkDay(t *testing.T) {
	u := standardUser(1, "maria@example.com")
	u.WorkHoursMonday = 0 // Tuesday becomes the first work day

	// Tuesday 09:00: daily plus weekly.
	tuesday := time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC)
	f := newFixture([]models.User{u}, tuesday)
	f.sched.RunTick(context.Background())
	require.Len(t, f.mail.sent, 2)
	// The weekly period key is still the Monday of the week.
	assert.True(t, f.ledger.entries[ledgerKey(1, models.SummaryKindWeekly, "2024-06-03")])

	// Wednesday 09:00: daily only.
	wednesday := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
	f = newFixture([]models.User{u}, wednesday)
	f.sched.RunTick(context.Background())
	require.Len(t, f.mail.sent, 1)
	assert.Contains(t, f.mail.sent[0].Subject, "Your scheduled work")
}

func TestOptOutSuppressesSend(t *testing.T) {
	f := newFixture([]models.User{standardUser(1, "maria@example.com")}, monday9)
	f.prefs.disabled["1:"+models.SettingDailyWorkSummary] = true
	f.prefs.disabled["1:"+models.SettingWeeklyWorkSummary] = true

	f.sched.RunTick(context.Background())

	assert.Empty(t, f.mail.sent)
	assert.Empty(t, f.ledger.entries)
}

func TestOneUserFailureDoesNotAbortOthers(t *testing.T) {
	f := newFixture([]models.User{
		standardUser(1, "broken@example.com"),
		standardUser(2, "healthy@example.com"),
	}, monday9)
	f.allocs.errFor[1] = errors.New("storage offline")

	f.sched.RunTick(context.Background())

	var recipients []string
	for _, m := range f.mail.sent {
		recipients = append(recipients, m.To)
	}
	assert.NotContains(t, recipients, "broken@example.com")
	assert.Contains(t, recipients, "healthy@example.com")
}

func TestLedgerRecordFailureDoesNotCrash(t *testing.T) {
	f := newFixture([]models.User{standardUser(1, "maria@example.com")}, monday9)
	f.ledger.recordErr = errors.New("write timeout")

	f.sched.RunTick(context.Background())
	// Nothing was recorded, so the next tick re-sends. That is the
	// documented duplicate risk of a failed record after a confirmed send.
	f.sched.RunTick(context.Background())

	assert.Len(t, f.mail.sent, 4)
}

func TestTransportFailureLeavesLedgerUntouched(t *testing.T) {
	f := newFixture([]models.User{standardUser(1, "maria@example.com")}, monday9)
	f.mail.err = errors.New("smtp unreachable")

	f.sched.RunTick(context.Background())

	assert.Empty(t, f.ledger.entries)
}

func TestAllZeroHoursNeverTriggers(t *testing.T) {
	u := models.User{Email: "idle@example.com", Active: true}
	u.ID = 1
	// Sweep every hour of a full week.
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			now := time.Date(2024, 6, 3+day, hour, 0, 0, 0, time.UTC)
			f := newFixture([]models.User{u}, now)
			f.sched.RunTick(context.Background())
			require.Empty(t, f.mail.sent)
		}
	}
}

func TestLisbonMondayScenario(t *testing.T) {
	// Lisbon is UTC+1 in June: 08:00 UTC is 09:00 local on Monday 2024-06-03.
	u := standardUser(1, "maria@example.com")
	u.Timezone = "Europe/Lisbon"
	now := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

	due := time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	f := newFixture([]models.User{u}, now)
	f.allocs.byDay["1:2024-06-03"] = []allocations.Entry{
		{TaskID: 10, TaskName: "Write report", ProjectName: "Acme", Hours: 4, DueDate: &due},
	}

	f.sched.RunTick(context.Background())

	require.NotEmpty(t, f.mail.sent)
	daily := f.mail.sent[0]
	assert.Contains(t, daily.HTML, "Write report")
	assert.Contains(t, daily.HTML, "4.0h")
	assert.NotContains(t, daily.HTML, "overdue")
	assert.True(t, f.ledger.entries[ledgerKey(1, models.SummaryKindDaily, "2024-06-03")])

	sentBefore := len(f.mail.sent)
	f.sched.RunTick(context.Background())
	assert.Len(t, f.mail.sent, sentBefore)
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture([]models.User{}, monday9)

	f.sched.Start()
	f.sched.Start() // warned no-op, not a second loop

	time.Sleep(50 * time.Millisecond)
	f.sched.Stop()
	f.sched.Stop() // idempotent

	// The immediate startup tick ran exactly once.
	assert.Equal(t, 1, f.ledger.pruneCount())
}

func TestStartAfterStopRunsAgain(t *testing.T) {
	f := newFixture([]models.User{}, monday9)

	f.sched.Start()
	time.Sleep(20 * time.Millisecond)
	f.sched.Stop()

	f.sched.Start()
	time.Sleep(20 * time.Millisecond)
	f.sched.Stop()

	assert.Equal(t, 2, f.ledger.pruneCount())
}

func TestSendTestDailyBypassesLedger(t *testing.T) {
	f := newFixture([]models.User{standardUser(1, "maria@example.com")}, monday9)
	// A send is already recorded for today; a test send must ignore it.
	f.ledger.entries[ledgerKey(1, models.SummaryKindDaily, "2024-06-03")] = true

	res := f.sched.SendTest(context.Background(), 1, models.SummaryKindDaily)

	assert.True(t, res.OK)
	require.Len(t, f.mail.sent, 1)
	assert.True(t, strings.HasPrefix(f.mail.sent[0].Subject, summary.TestPrefix))
	// And it leaves no new ledger entries behind.
	assert.Len(t, f.ledger.entries, 1)
}

func TestSendTestWeeklyOnAnyWeekday(t *testing.T) {
	// Thursday is not the first work day, yet the weekly test send works.
	thursday := time.Date(2024, 6, 6, 15, 0, 0, 0, time.UTC)
	f := newFixture([]models.User{standardUser(1, "maria@example.com")}, thursday)

	res := f.sched.SendTest(context.Background(), 1, models.SummaryKindWeekly)

	assert.True(t, res.OK)
	require.Len(t, f.mail.sent, 1)
	assert.Contains(t, f.mail.sent[0].Subject, "weekly work summary")
	assert.Empty(t, f.ledger.entries)
}

func TestSendTestUnknownUser(t *testing.T) {
	f := newFixture(nil, monday9)

	res := f.sched.SendTest(context.Background(), 42, models.SummaryKindDaily)

	assert.False(t, res.OK)
	assert.Equal(t, "user not found", res.Message)
}

func TestSendTestNoEmail(t *testing.T) {
	u := standardUser(1, "")
	f := newFixture([]models.User{u}, monday9)

	res := f.sched.SendTest(context.Background(), 1, models.SummaryKindDaily)

	assert.False(t, res.OK)
	assert.Equal(t, "user has no email address", res.Message)
}

func TestSendTestTransportFailureIsReported(t *testing.T) {
	f := newFixture([]models.User{standardUser(1, "maria@example.com")}, monday9)
	f.mail.err = errors.New("smtp unreachable")

	res := f.sched.SendTest(context.Background(), 1, models.SummaryKindDaily)

	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "sending failed")
}

func TestSendTestUnknownKind(t *testing.T) {
	f := newFixture([]models.User{standardUser(1, "maria@example.com")}, monday9)

	res := f.sched.SendTest(context.Background(), 1, "monthly")

	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "unknown summary kind")
}
