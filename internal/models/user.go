package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents an application user together with their work-week profile.
// The seven (hours, start time) pairs are stored as one column per weekday so
// the profile-settings UI can update a single day without touching the rest;
// scheduling code reads them through the array accessors below instead of
// picking columns by name.
type User struct {
	gorm.Model
	Email     string `gorm:"uniqueIndex:idx_users_email_not_deleted,where:deleted_at IS NULL;not null"`
	FirstName string `gorm:"not null;default:''"`
	LastName  string `gorm:"not null;default:''"`
	// Timezone is an IANA name like "Europe/Lisbon". Empty means the user
	// never picked one and the server's own local time is used.
	Timezone string `gorm:"not null;default:''"`
	Active   bool   `gorm:"not null;default:true"`

	// WorkHoursX = 0 means X is not a work day for this user.
	WorkHoursSunday    float64 `gorm:"not null;default:0"`
	WorkHoursMonday    float64 `gorm:"not null;default:8"`
	WorkHoursTuesday   float64 `gorm:"not null;default:8"`
	WorkHoursWednesday float64 `gorm:"not null;default:8"`
	WorkHoursThursday  float64 `gorm:"not null;default:8"`
	WorkHoursFriday    float64 `gorm:"not null;default:8"`
	WorkHoursSaturday  float64 `gorm:"not null;default:0"`

	// WorkStartX is a local wall-clock "HH:MM" string.
	WorkStartSunday    string `gorm:"not null;default:'09:00'"`
	WorkStartMonday    string `gorm:"not null;default:'09:00'"`
	WorkStartTuesday   string `gorm:"not null;default:'09:00'"`
	WorkStartWednesday string `gorm:"not null;default:'09:00'"`
	WorkStartThursday  string `gorm:"not null;default:'09:00'"`
	WorkStartFriday    string `gorm:"not null;default:'09:00'"`
	WorkStartSaturday  string `gorm:"not null;default:'09:00'"`
}

// WorkHours returns the per-day work hours indexed by time.Weekday
// (Sunday = 0).
func (u *User) WorkHours() [7]float64 {
	return [7]float64{
		time.Sunday:    u.WorkHoursSunday,
		time.Monday:    u.WorkHoursMonday,
		time.Tuesday:   u.WorkHoursTuesday,
		time.Wednesday: u.WorkHoursWednesday,
		time.Thursday:  u.WorkHoursThursday,
		time.Friday:    u.WorkHoursFriday,
		time.Saturday:  u.WorkHoursSaturday,
	}
}

// WorkStarts returns the per-day "HH:MM" start times indexed by time.Weekday.
func (u *User) WorkStarts() [7]string {
	return [7]string{
		time.Sunday:    u.WorkStartSunday,
		time.Monday:    u.WorkStartMonday,
		time.Tuesday:   u.WorkStartTuesday,
		time.Wednesday: u.WorkStartWednesday,
		time.Thursday:  u.WorkStartThursday,
		time.Friday:    u.WorkStartFriday,
		time.Saturday:  u.WorkStartSaturday,
	}
}

// DisplayName returns "First Last", falling back to the email address when
// both name parts are empty.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
