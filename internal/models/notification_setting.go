package models

import "gorm.io/gorm"

// Notification setting keys read by the summary core.
const (
	SettingDailyWorkSummary  = "daily_work_summary"
	SettingWeeklyWorkSummary = "weekly_work_summary"
)

// NotificationSetting is a per-user opt-in/opt-out for one notification type.
// A missing row means the notification is enabled.
type NotificationSetting struct {
	gorm.Model
	UserID     uint   `gorm:"not null;uniqueIndex:idx_notification_settings_user_key"`
	SettingKey string `gorm:"not null;uniqueIndex:idx_notification_settings_user_key"`
	Enabled    bool   `gorm:"not null;default:true"`
}
