// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the credential
// store: single-use drop credentials and standing identity credentials.
//
// Error semantics:
//   - When a credential is not found (including an already-redeemed drop
//     credential), functions return ErrNotFound.
//   - A second identity credential for the same recipient returns ErrConflict.
//   - On other DB errors, the raw gorm error is propagated.
//
// Redemption is the single-use enforcement point: RedeemDropCredential issues
// one conditional DELETE and maps zero rows affected to ErrNotFound, so two
// concurrent collections of the same token cannot both succeed.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-locker-backend/internal/domain"
)

// ErrConflict indicates a uniqueness violation: a second identity credential
// for a recipient, or a second outstanding drop credential for the same
// (recipient, locker) pair.
var ErrConflict = errors.New("credential already exists")

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// CreateDropCredential mints and persists a single-use credential binding
// recipientID to lockerID. The token is freshly generated (128-bit random,
// hex). A pre-existing outstanding credential for the same pair returns
// ErrConflict.
func CreateDropCredential(ctx context.Context, db *gorm.DB, recipientID string, lockerID uint) (*domain.DropCredential, error) {
	c := &domain.DropCredential{
		ID:          uuid.NewString(),
		Token:       domain.NewToken(),
		RecipientID: recipientID,
		LockerID:    lockerID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return c, nil
}

// CreateIdentityCredential enrolls a standing identity credential for
// recipientID. When token is empty a fresh one is generated; a non-empty
// token (e.g. an NFC tag UID burned at manufacture) is stored as given.
// A recipient can hold exactly one; a second call returns ErrConflict.
func CreateIdentityCredential(ctx context.Context, db *gorm.DB, recipientID, token string) (*domain.IdentityCredential, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		token = domain.NewToken()
	}
	c := &domain.IdentityCredential{
		ID:          uuid.NewString(),
		Token:       token,
		RecipientID: recipientID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return c, nil
}

// GetDropCredentialByToken fetches a live drop credential by token, or
// ErrNotFound. A redeemed credential is gone, so its token resolves to
// ErrNotFound as well; callers cannot distinguish "never existed" from
// "already used", which keeps token enumeration uninformative.
func GetDropCredentialByToken(ctx context.Context, db *gorm.DB, token string) (*domain.DropCredential, error) {
	var c domain.DropCredential
	if err := db.WithContext(ctx).Where("token = ?", token).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetIdentityCredentialByToken fetches an identity credential by its token
// (QR payload token or NFC serial), or ErrNotFound.
func GetIdentityCredentialByToken(ctx context.Context, db *gorm.DB, token string) (*domain.IdentityCredential, error) {
	var c domain.IdentityCredential
	if err := db.WithContext(ctx).Where("token = ?", token).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOutstandingForRecipient returns the recipient's oldest outstanding drop
// credential, or ErrNotFound when none is waiting. The deposit path uses it
// to resume a partially completed deposit instead of claiming a new locker.
func GetOutstandingForRecipient(ctx context.Context, db *gorm.DB, recipientID string) (*domain.DropCredential, error) {
	var c domain.DropCredential
	err := db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at asc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListOutstandingForRecipient returns every outstanding drop credential for
// the recipient, oldest first. An empty slice means nothing is waiting.
func ListOutstandingForRecipient(ctx context.Context, db *gorm.DB, recipientID string) ([]domain.DropCredential, error) {
	var out []domain.DropCredential
	err := db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// RedeemDropCredential deletes the drop credential with the given token.
// Exactly one caller can succeed; any later (or concurrent losing) call gets
// ErrNotFound. The delete is unscoped: a redeemed credential is consumed, not
// soft-archived, so its unique token and (recipient, locker) slot are freed.
func RedeemDropCredential(ctx context.Context, db *gorm.DB, token string) error {
	res := db.WithContext(ctx).
		Unscoped().
		Where("token = ?", token).
		Delete(&domain.DropCredential{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
