// Package notify reads per-user notification preferences.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/models"
)

// Store reads notification settings.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore creates a preference store.
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// WantsEmail reports whether the user has the given notification type
// enabled. A missing row defaults to enabled, and so does a failed read: an
// unreadable preference must not silently suppress mail.
func (s *Store) WantsEmail(ctx context.Context, userID uint, settingKey string) bool {
	var setting models.NotificationSetting
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND setting_key = ?", userID, settingKey).
		First(&setting).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("Failed to read notification setting, defaulting to enabled",
				"user_id", userID, "setting_key", settingKey, "error", err.Error())
		}
		return true
	}
	return setting.Enabled
}
