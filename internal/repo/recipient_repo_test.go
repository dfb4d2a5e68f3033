package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-locker-backend/internal/domain"
)

func TestCreateRecipient_NormalizesEmail(t *testing.T) {
	db := newLockerDB(t, &domain.Recipient{})

	r, err := CreateRecipient(context.Background(), db, "  Ada ", " Ada@Example.COM ")
	if err != nil {
		t.Fatalf("CreateRecipient: %v", err)
	}
	if r.Name != "Ada" || r.Email != "ada@example.com" {
		t.Fatalf("normalization failed: %+v", r)
	}
}

func TestCreateRecipient_DuplicateEmail(t *testing.T) {
	db := newLockerDB(t, &domain.Recipient{})

	if _, err := CreateRecipient(context.Background(), db, "A", "a@example.com"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateRecipient(context.Background(), db, "B", "A@EXAMPLE.com"); err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetRecipient_ByIDAndEmail(t *testing.T) {
	db := newLockerDB(t, &domain.Recipient{})

	created, err := CreateRecipient(context.Background(), db, "A", "a@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	byID, err := GetRecipient(context.Background(), db, created.ID)
	if err != nil || byID.Email != "a@example.com" {
		t.Fatalf("GetRecipient: %+v, %v", byID, err)
	}

	byEmail, err := GetRecipientByEmail(context.Background(), db, "A@example.COM")
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("GetRecipientByEmail: %+v, %v", byEmail, err)
	}

	if _, err := GetRecipient(context.Background(), db, "missing"); err == nil {
		t.Fatalf("expected error for unknown recipient")
	}
}

func TestIdempotency_CreateGetAndExpiry(t *testing.T) {
	db := newLockerDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	if _, err := GetIdempotency(context.Background(), db, "u1", "r1", "k1", now); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before create, got %v", err)
	}

	rec, err := CreateIdempotency(context.Background(), db, "u1", "r1", "k1", "tok123", 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.CredentialToken != "tok123" || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(context.Background(), db, "u1", "r1", "k1", now)
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.ID != rec.ID {
		t.Fatalf("wrong record: %+v", got)
	}

	// Expired records are invisible.
	if _, err := GetIdempotency(context.Background(), db, "u1", "r1", "k1", now.Add(2*time.Hour)); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}

	// Blank recipient scope is rejected up front.
	if _, err := GetIdempotency(context.Background(), db, "u1", " ", "k1", now); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for blank recipient, got %v", err)
	}
}

func TestHasIdempotency(t *testing.T) {
	db := newLockerDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	hit, err := HasIdempotency(context.Background(), db, "u1", "k1", now)
	if err != nil || hit {
		t.Fatalf("expected miss before create, got hit=%v err=%v", hit, err)
	}

	if _, err := CreateIdempotency(context.Background(), db, "u1", "r1", "k1", "tok", 201, time.Hour); err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}

	// Hits regardless of the recipient the key was stored under.
	hit, err = HasIdempotency(context.Background(), db, "u1", "k1", now)
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}

	if hit, _ := HasIdempotency(context.Background(), db, "u2", "k1", now); hit {
		t.Fatalf("key must not leak across users")
	}
	if hit, _ := HasIdempotency(context.Background(), db, "u1", "k1", now.Add(2*time.Hour)); hit {
		t.Fatalf("expired key must miss")
	}
}

func TestIdempotency_Duplicate(t *testing.T) {
	db := newLockerDB(t, &domain.Idempotency{})

	if _, err := CreateIdempotency(context.Background(), db, "u1", "r1", "k1", "tok", 201, time.Hour); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateIdempotency(context.Background(), db, "u1", "r1", "k1", "tok2", 201, time.Hour); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}
