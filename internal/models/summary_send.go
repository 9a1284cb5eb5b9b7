package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Summary kind constants
const (
	SummaryKindDaily  = "daily"
	SummaryKindWeekly = "weekly"
)

// SummarySend is the idempotency record for summary emails: one row per
// (user, kind, period) that has been delivered. The unique index is what
// turns a concurrent double-send race into a harmless duplicate-key error.
type SummarySend struct {
	gorm.Model
	UserID    uint           `gorm:"not null;uniqueIndex:idx_summary_sends_period"`
	Kind      string         `gorm:"not null;uniqueIndex:idx_summary_sends_period"`
	PeriodKey string         `gorm:"not null;uniqueIndex:idx_summary_sends_period"`
	SentAt    time.Time      `gorm:"not null;index"`
	Details   datatypes.JSON `gorm:"type:jsonb"`
}
