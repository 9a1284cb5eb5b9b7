package models

import (
	"time"

	"gorm.io/gorm"
)

// Project groups tasks. Hobby projects are broken out separately from work
// projects in the summary emails.
type Project struct {
	gorm.Model
	Name  string `gorm:"not null"`
	Hobby bool   `gorm:"not null;default:false"`

	Tasks []Task `gorm:"constraint:OnDelete:CASCADE;"`
}

// Task is a unit of plannable work inside a project.
type Task struct {
	gorm.Model
	ProjectID uint    `gorm:"not null;index"`
	Project   Project `gorm:"constraint:OnDelete:CASCADE;"`
	Name      string  `gorm:"not null"`
	DueDate   *time.Time
}

// Allocation records hours assigned to a task for a user on a specific date.
// Allocations are written by the planning UI; the summary core only reads
// them.
type Allocation struct {
	gorm.Model
	UserID uint      `gorm:"not null;index:idx_allocations_user_date"`
	User   User      `gorm:"constraint:OnDelete:CASCADE;"`
	TaskID uint      `gorm:"not null;index"`
	Task   Task      `gorm:"constraint:OnDelete:CASCADE;"`
	Date   time.Time `gorm:"not null;index:idx_allocations_user_date;type:date"`
	Hours  float64   `gorm:"not null;type:decimal(5,2)"`
}
