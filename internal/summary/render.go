// Package summary renders the daily and weekly work-summary emails. The
// renderers are pure functions of their inputs so the output can be
// snapshot-tested.
package summary

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/tasklane/tasklane/internal/allocations"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// TestPrefix marks the subject of on-demand test sends.
const TestPrefix = "[Test] "

// Email is a rendered message ready for the mail transport.
type Email struct {
	Subject string
	HTML    string
}

type taskRow struct {
	Name    string
	Project string
	Hours   string
	Due     string
	Overdue bool
}

type dayRow struct {
	Label      string
	WorkHours  string
	HobbyHours string
}

type emailView struct {
	Name        string
	PeriodLabel string

	HasTasks bool
	// Grouped is true when both work and hobby tasks exist; only then do the
	// subtotal rows and the grand total appear.
	Grouped    bool
	Work       []taskRow
	Hobby      []taskRow
	All        []taskRow
	WorkTotal  string
	HobbyTotal string
	GrandTotal string

	Breakdown []dayRow
}

// RenderDaily builds the daily summary email for one user. dateKey is the
// user's local "YYYY-MM-DD" and is the reference date for overdue flagging.
func RenderDaily(userName, dateKey string, entries []allocations.Entry) (Email, error) {
	view := buildView(userName, entries, dateKey)
	view.PeriodLabel = humanDate(dateKey)

	body, err := execute("daily.tmpl", view)
	if err != nil {
		return Email{}, err
	}
	return Email{
		Subject: fmt.Sprintf("Your scheduled work for %s", humanDate(dateKey)),
		HTML:    body,
	}, nil
}

// RenderWeekly builds the weekly summary email. Overdue flagging is relative
// to the week's end date, and the breakdown always covers all seven
// Monday-start days.
func RenderWeekly(userName, weekStartKey, weekEndKey string, entries []allocations.Entry, breakdown [7]allocations.DayTotal) (Email, error) {
	view := buildView(userName, entries, weekEndKey)
	view.PeriodLabel = fmt.Sprintf("%s to %s", humanDate(weekStartKey), humanDate(weekEndKey))

	view.Breakdown = make([]dayRow, 0, len(breakdown))
	for _, day := range breakdown {
		view.Breakdown = append(view.Breakdown, dayRow{
			Label:      humanDate(day.Date),
			WorkHours:  formatHours(day.WorkHours),
			HobbyHours: formatHours(day.HobbyHours),
		})
	}

	body, err := execute("weekly.tmpl", view)
	if err != nil {
		return Email{}, err
	}
	return Email{
		Subject: fmt.Sprintf("Your weekly work summary, %s to %s", humanDate(weekStartKey), humanDate(weekEndKey)),
		HTML:    body,
	}, nil
}

func buildView(userName string, entries []allocations.Entry, referenceKey string) emailView {
	view := emailView{
		Name:     userName,
		HasTasks: len(entries) > 0,
	}

	var workHours, hobbyHours float64
	for _, e := range entries {
		row := taskRow{
			Name:    e.TaskName,
			Project: e.ProjectName,
			Hours:   formatHours(e.Hours),
			Due:     dueLabel(e.DueDate),
			Overdue: isOverdue(e.DueDate, referenceKey),
		}
		if e.Hobby {
			view.Hobby = append(view.Hobby, row)
			hobbyHours += e.Hours
		} else {
			view.Work = append(view.Work, row)
			workHours += e.Hours
		}
	}

	view.Grouped = len(view.Work) > 0 && len(view.Hobby) > 0
	if view.Grouped {
		view.WorkTotal = formatHours(workHours)
		view.HobbyTotal = formatHours(hobbyHours)
		view.GrandTotal = formatHours(workHours + hobbyHours)
	} else {
		view.All = append(view.Work, view.Hobby...)
		view.GrandTotal = formatHours(workHours + hobbyHours)
	}
	return view
}

func execute(name string, view emailView) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, view); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// isOverdue reports whether due falls strictly before the reference date.
// ISO date keys compare correctly as strings.
func isOverdue(due *time.Time, referenceKey string) bool {
	if due == nil {
		return false
	}
	return due.Format("2006-01-02") < referenceKey
}

func dueLabel(due *time.Time) string {
	if due == nil {
		return ""
	}
	return humanDate(due.Format("2006-01-02"))
}

func formatHours(h float64) string {
	return fmt.Sprintf("%.1fh", h)
}

// humanDate turns "2024-06-03" into "Mon, Jun 3 2024". Malformed keys are
// passed through untouched rather than dropped.
func humanDate(dateKey string) string {
	t, err := time.Parse("2006-01-02", dateKey)
	if err != nil {
		return dateKey
	}
	return t.Format("Mon, Jan 2 2006")
}
