// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for recipients.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-locker-backend/internal/domain"
)

// CreateRecipient inserts a new recipient. Emails are normalized to lower
// case; a duplicate email returns ErrConflict.
func CreateRecipient(ctx context.Context, db *gorm.DB, name, email string) (*domain.Recipient, error) {
	r := &domain.Recipient{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return r, nil
}

// GetRecipient fetches a recipient by ID, or ErrNotFound if missing.
func GetRecipient(ctx context.Context, db *gorm.DB, id string) (*domain.Recipient, error) {
	var r domain.Recipient
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecipientByEmail fetches a recipient by normalized email, or ErrNotFound.
func GetRecipientByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Recipient, error) {
	var r domain.Recipient
	err := db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}
