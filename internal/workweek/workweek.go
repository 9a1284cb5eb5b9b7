// Package workweek resolves a user's local time and work-week configuration.
// Everything here is pure; the scheduler injects "now".
package workweek

import (
	"strconv"
	"strings"
	"time"

	"github.com/tasklane/tasklane/internal/models"
)

// LocalNow converts now into the wall clock of the given IANA timezone.
// An empty or unresolvable timezone falls back to now unchanged, so a user
// with a broken timezone string still gets summaries anchored to server time.
func LocalNow(now time.Time, timezone string) time.Time {
	if timezone == "" {
		return now
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return now
	}
	return now.In(loc)
}

// Profile is a user's work-week configuration snapshotted into fixed arrays
// indexed by time.Weekday.
type Profile struct {
	hours  [7]float64
	starts [7]string
}

// NewProfile builds a Profile from the user's weekday columns.
func NewProfile(u *models.User) Profile {
	return Profile{hours: u.WorkHours(), starts: u.WorkStarts()}
}

// HoursFor returns the configured work hours for the weekday. Zero means the
// day is not a work day.
func (p Profile) HoursFor(w time.Weekday) float64 {
	return p.hours[w]
}

// StartFor returns the configured "HH:MM" work start time for the weekday.
func (p Profile) StartFor(w time.Weekday) string {
	return p.starts[w]
}

// FirstWorkDay returns the user's first work day of the week, scanning
// Monday through Saturday and then Sunday. The second return is false when
// no day has work hours, in which case the user is never eligible for a
// weekly summary.
func (p Profile) FirstWorkDay() (time.Weekday, bool) {
	for i := 1; i <= 7; i++ {
		w := time.Weekday(i % 7)
		if p.hours[w] > 0 {
			return w, true
		}
	}
	return time.Sunday, false
}

// DateKey formats t's calendar date in its own location as "YYYY-MM-DD".
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// StartHour parses the hour out of an "HH:MM" string. Returns -1 for
// malformed input so a corrupted start time can never match a real hour.
func StartHour(hhmm string) int {
	h, _, found := strings.Cut(hhmm, ":")
	if !found {
		return -1
	}
	hour, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || hour < 0 || hour > 23 {
		return -1
	}
	return hour
}

// WeekOf returns the Monday-start week containing t: start is Monday 00:00
// and end is the following Sunday 00:00, both in t's location.
func WeekOf(t time.Time) (start, end time.Time) {
	back := int(t.Weekday()) - int(time.Monday)
	if back < 0 {
		back = 6 // Sunday belongs to the week that started the previous Monday
	}
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, -back)
	return start, start.AddDate(0, 0, 6)
}
