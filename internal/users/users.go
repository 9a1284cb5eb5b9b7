// Package users reads user records for the summary core.
package users

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/models"
)

// Directory looks up users. The summary core only needs reads; profile
// mutation belongs to the settings UI.
type Directory struct {
	db *gorm.DB
}

// NewDirectory creates a user directory over the given database.
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// ActiveUsersWithEmail returns every active user that has an email address.
func (d *Directory) ActiveUsersWithEmail(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := d.db.WithContext(ctx).
		Where("active = ? AND email <> ''", true).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active users: %w", err)
	}
	return users, nil
}

// UserByID returns one user. The gorm.ErrRecordNotFound sentinel is passed
// through so callers can distinguish a missing user from a failed read.
func (d *Directory) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
