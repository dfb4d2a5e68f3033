// Package services – EnrollmentService
//
// This file implements recipient registration and identity-credential
// enrollment. Both sit at the edge of the core (the deposit/collection
// workflows only consume their output) but they are the only writers of
// recipients and identity credentials, so the invariants live here.
package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-locker-backend/internal/domain"
	"github.com/tbourn/go-locker-backend/internal/repo"
)

// EnrollmentService registers recipients and enrolls identity credentials.
type EnrollmentService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// RegisterRecipient creates a recipient. The email must parse as an address;
// a duplicate returns ErrDuplicateRecipient.
func (s *EnrollmentService) RegisterRecipient(ctx context.Context, name, email string) (*domain.Recipient, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, errors.New("name and email are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.New("invalid email address")
	}
	r, err := repo.CreateRecipient(ctx, s.DB, name, email)
	if errors.Is(err, repo.ErrConflict) {
		return nil, ErrDuplicateRecipient
	}
	return r, err
}

// EnrollIdentity issues the standing identity credential for a recipient.
// serial is optional: empty generates a fresh token, non-empty stores a
// pre-existing physical identifier (e.g. an NFC tag UID). One per recipient;
// a second call returns ErrAlreadyEnrolled.
func (s *EnrollmentService) EnrollIdentity(ctx context.Context, recipientID, serial string) (*domain.IdentityCredential, error) {
	if _, err := repo.GetRecipient(ctx, s.DB, recipientID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnknownRecipient
		}
		return nil, err
	}
	c, err := repo.CreateIdentityCredential(ctx, s.DB, recipientID, serial)
	if errors.Is(err, repo.ErrConflict) {
		return nil, ErrAlreadyEnrolled
	}
	return c, err
}
