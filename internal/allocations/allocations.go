// Package allocations reads and aggregates work-allocation records for the
// summary emails. All queries are read-only; aggregation and ordering happen
// in Go so they stay testable without a database.
package allocations

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/models"
	"github.com/tasklane/tasklane/internal/workweek"
)

// Entry is one row of a summary email: a task with its allocated hours and
// the project attributes the renderer needs.
type Entry struct {
	TaskID      uint
	TaskName    string
	ProjectName string
	Hours       float64
	DueDate     *time.Time
	Hobby       bool
}

// DayTotal is one day of the weekly breakdown.
type DayTotal struct {
	Date       string
	WorkHours  float64
	HobbyHours float64
}

// Repository queries allocation records.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates an allocation repository over the given database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ForDay returns the user's allocations for a single calendar date, ordered
// work-before-hobby and then by descending hours.
func (r *Repository) ForDay(ctx context.Context, userID uint, dateKey string) ([]Entry, error) {
	rows, err := r.fetchRange(ctx, userID, dateKey, dateKey)
	if err != nil {
		return nil, err
	}
	sortEntries(rows)
	return rows, nil
}

// ForWeek returns one entry per distinct task the user had allocations for in
// the inclusive date range, with hours summed across the range. Ordering
// matches ForDay.
func (r *Repository) ForWeek(ctx context.Context, userID uint, startKey, endKey string) ([]Entry, error) {
	rows, err := r.fetchRange(ctx, userID, startKey, endKey)
	if err != nil {
		return nil, err
	}
	merged := sumByTask(rows)
	sortEntries(merged)
	return merged, nil
}

// DailyBreakdown returns work/hobby hour totals for each of the seven days of
// the Monday-start week beginning at weekStart. Days without allocations are
// present with zero hours.
func (r *Repository) DailyBreakdown(ctx context.Context, userID uint, weekStart time.Time) ([7]DayTotal, error) {
	start := workweek.DateKey(weekStart)
	end := workweek.DateKey(weekStart.AddDate(0, 0, 6))

	startDate, endDate, err := parseRange(start, end)
	if err != nil {
		return [7]DayTotal{}, err
	}

	var rows []breakdownRow
	err = r.db.WithContext(ctx).
		Model(&models.Allocation{}).
		Select("allocations.date, allocations.hours, projects.hobby").
		Joins("JOIN tasks ON tasks.id = allocations.task_id").
		Joins("JOIN projects ON projects.id = tasks.project_id").
		Where("allocations.user_id = ? AND allocations.date BETWEEN ? AND ?", userID, startDate, endDate).
		Scan(&rows).Error
	if err != nil {
		return [7]DayTotal{}, fmt.Errorf("failed to query weekly breakdown: %w", err)
	}

	return foldBreakdown(weekStart, rows), nil
}

type breakdownRow struct {
	Date  time.Time
	Hours float64
	Hobby bool
}

func (r *Repository) fetchRange(ctx context.Context, userID uint, startKey, endKey string) ([]Entry, error) {
	startDate, endDate, err := parseRange(startKey, endKey)
	if err != nil {
		return nil, err
	}

	var rows []Entry
	err = r.db.WithContext(ctx).
		Model(&models.Allocation{}).
		Select("allocations.task_id, tasks.name AS task_name, projects.name AS project_name, allocations.hours, tasks.due_date, projects.hobby").
		Joins("JOIN tasks ON tasks.id = allocations.task_id").
		Joins("JOIN projects ON projects.id = tasks.project_id").
		Where("allocations.user_id = ? AND allocations.date BETWEEN ? AND ?", userID, startDate, endDate).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	return rows, nil
}

func parseRange(startKey, endKey string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", startKey)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", startKey, err)
	}
	end, err := time.Parse("2006-01-02", endKey)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", endKey, err)
	}
	return start, end, nil
}

// sumByTask collapses raw allocation rows to one entry per task, summing
// hours. Task metadata is identical across rows of the same task, so the
// first row wins.
func sumByTask(rows []Entry) []Entry {
	index := make(map[uint]int, len(rows))
	merged := make([]Entry, 0, len(rows))
	for _, row := range rows {
		if i, ok := index[row.TaskID]; ok {
			merged[i].Hours += row.Hours
			continue
		}
		index[row.TaskID] = len(merged)
		merged = append(merged, row)
	}
	return merged
}

// sortEntries orders work entries before hobby entries, then by descending
// hours. The sort is stable so equal rows keep their query order.
func sortEntries(rows []Entry) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Hobby != rows[j].Hobby {
			return !rows[i].Hobby
		}
		return rows[i].Hours > rows[j].Hours
	})
}

// foldBreakdown distributes rows over the seven days of the week starting at
// weekStart, keyed by calendar date.
func foldBreakdown(weekStart time.Time, rows []breakdownRow) [7]DayTotal {
	var out [7]DayTotal
	index := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		key := workweek.DateKey(weekStart.AddDate(0, 0, i))
		out[i].Date = key
		index[key] = i
	}

	for _, row := range rows {
		i, ok := index[workweek.DateKey(row.Date)]
		if !ok {
			continue
		}
		if row.Hobby {
			out[i].HobbyHours += row.Hours
		} else {
			out[i].WorkHours += row.Hours
		}
	}
	return out
}
