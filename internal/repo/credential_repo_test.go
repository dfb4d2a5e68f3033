package repo

import (
	"context"
	"sync"
	"testing"

	"github.com/tbourn/go-locker-backend/internal/domain"
	"gorm.io/gorm"
)

func newCredDB(t *testing.T) *gorm.DB {
	t.Helper()
	return newLockerDB(t,
		&domain.Locker{},
		&domain.Recipient{},
		&domain.DropCredential{},
		&domain.IdentityCredential{},
	)
}

func seedRecipient(t *testing.T, db *gorm.DB, email string) *domain.Recipient {
	t.Helper()
	r, err := CreateRecipient(context.Background(), db, "Test Recipient", email)
	if err != nil {
		t.Fatalf("CreateRecipient: %v", err)
	}
	return r
}

func TestCreateDropCredential_Success(t *testing.T) {
	db := newCredDB(t)
	r := seedRecipient(t, db, "a@example.com")
	ls := seedLockers(t, db, 1)

	c, err := CreateDropCredential(context.Background(), db, r.ID, ls[0].ID)
	if err != nil {
		t.Fatalf("CreateDropCredential: %v", err)
	}
	if len(c.Token) != 32 {
		t.Fatalf("token length = %d, want 32", len(c.Token))
	}
	if c.RecipientID != r.ID || c.LockerID != ls[0].ID {
		t.Fatalf("unexpected bindings: %+v", c)
	}
}

func TestCreateDropCredential_DuplicatePair(t *testing.T) {
	db := newCredDB(t)
	r := seedRecipient(t, db, "a@example.com")
	ls := seedLockers(t, db, 1)

	if _, err := CreateDropCredential(context.Background(), db, r.ID, ls[0].ID); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateDropCredential(context.Background(), db, r.ID, ls[0].ID); err != ErrConflict {
		t.Fatalf("expected ErrConflict for duplicate (recipient, locker), got %v", err)
	}
}

func TestCreateIdentityCredential_OnePerRecipient(t *testing.T) {
	db := newCredDB(t)
	r := seedRecipient(t, db, "a@example.com")

	c, err := CreateIdentityCredential(context.Background(), db, r.ID, "")
	if err != nil {
		t.Fatalf("CreateIdentityCredential: %v", err)
	}
	if c.Token == "" {
		t.Fatalf("expected generated token")
	}

	if _, err := CreateIdentityCredential(context.Background(), db, r.ID, ""); err != ErrConflict {
		t.Fatalf("expected ErrConflict for second identity credential, got %v", err)
	}
}

func TestCreateIdentityCredential_ExplicitSerial(t *testing.T) {
	db := newCredDB(t)
	r := seedRecipient(t, db, "a@example.com")

	c, err := CreateIdentityCredential(context.Background(), db, r.ID, " 04:A3:22:B1 ")
	if err != nil {
		t.Fatalf("CreateIdentityCredential: %v", err)
	}
	if c.Token != "04:A3:22:B1" {
		t.Fatalf("expected trimmed serial kept, got %q", c.Token)
	}

	got, err := GetIdentityCredentialByToken(context.Background(), db, "04:A3:22:B1")
	if err != nil {
		t.Fatalf("GetIdentityCredentialByToken: %v", err)
	}
	if got.RecipientID != r.ID {
		t.Fatalf("identity credential bound to wrong recipient: %+v", got)
	}
}

func TestGetDropCredentialByToken(t *testing.T) {
	db := newCredDB(t)
	r := seedRecipient(t, db, "a@example.com")
	ls := seedLockers(t, db, 1)

	c, err := CreateDropCredential(context.Background(), db, r.ID, ls[0].ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := GetDropCredentialByToken(context.Background(), db, c.Token)
	if err != nil {
		t.Fatalf("GetDropCredentialByToken: %v", err)
	}
	if got.ID != c.ID {
		t.Fatalf("wrong credential returned: %+v", got)
	}

	if _, err := GetDropCredentialByToken(context.Background(), db, "deadbeef"); err == nil {
		t.Fatalf("expected error for unknown token")
	}
}

func TestOutstandingForRecipient(t *testing.T) {
	db := newCredDB(t)
	r := seedRecipient(t, db, "a@example.com")
	other := seedRecipient(t, db, "b@example.com")
	ls := seedLockers(t, db, 3)

	if _, err := GetOutstandingForRecipient(context.Background(), db, r.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound with nothing outstanding, got %v", err)
	}

	c1, err := CreateDropCredential(context.Background(), db, r.ID, ls[0].ID)
	if err != nil {
		t.Fatalf("create c1: %v", err)
	}
	if _, err := CreateDropCredential(context.Background(), db, r.ID, ls[1].ID); err != nil {
		t.Fatalf("create c2: %v", err)
	}
	if _, err := CreateDropCredential(context.Background(), db, other.ID, ls[2].ID); err != nil {
		t.Fatalf("create other: %v", err)
	}

	got, err := GetOutstandingForRecipient(context.Background(), db, r.ID)
	if err != nil {
		t.Fatalf("GetOutstandingForRecipient: %v", err)
	}
	if got.ID != c1.ID {
		t.Fatalf("expected oldest credential %s, got %s", c1.ID, got.ID)
	}

	all, err := ListOutstandingForRecipient(context.Background(), db, r.ID)
	if err != nil {
		t.Fatalf("ListOutstandingForRecipient: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 outstanding, got %d", len(all))
	}
}

func TestRedeemDropCredential_ExactlyOnce(t *testing.T) {
	db := newCredDB(t)
	r := seedRecipient(t, db, "a@example.com")
	ls := seedLockers(t, db, 1)

	c, err := CreateDropCredential(context.Background(), db, r.ID, ls[0].ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := RedeemDropCredential(context.Background(), db, c.Token); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if err := RedeemDropCredential(context.Background(), db, c.Token); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on second redeem, got %v", err)
	}
	if _, err := GetDropCredentialByToken(context.Background(), db, c.Token); err != ErrNotFound {
		t.Fatalf("redeemed token still resolvable: %v", err)
	}
}

// Single-use under concurrency: many racing redeems, exactly one winner.
func TestRedeemDropCredential_ConcurrentSingleWinner(t *testing.T) {
	db := newCredDB(t)
	r := seedRecipient(t, db, "a@example.com")
	ls := seedLockers(t, db, 1)

	c, err := CreateDropCredential(context.Background(), db, r.ID, ls[0].ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		notFound int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := RedeemDropCredential(context.Background(), db, c.Token)
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				wins++
			case ErrNotFound:
				notFound++
			default:
				t.Errorf("unexpected redeem error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly 1 successful redeem, got %d", wins)
	}
	if notFound != attempts-1 {
		t.Fatalf("expected %d NotFound, got %d", attempts-1, notFound)
	}
}
