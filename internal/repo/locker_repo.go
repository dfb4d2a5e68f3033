// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Locker
// pool: atomic claim (find-and-reserve), release, and read queries.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only persistence
// and query composition.
//
// Concurrency: "find a free locker, then mark it occupied" is a check-then-act
// race when done as two statements: two concurrent deposits can both observe
// the same free locker. ClaimFree therefore reserves with a single conditional
// UPDATE (occupied=true WHERE id=? AND occupied=false) and treats zero rows
// affected as "lost the race", moving on to the next candidate. FreeLocker is
// the mirror image. Neither holds any application-level lock, so slow hardware
// calls never block unrelated requests on the store.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-locker-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrPoolExhausted is returned by ClaimFree when no unoccupied locker exists.
var ErrPoolExhausted = errors.New("no unoccupied locker available")

// claimCandidates bounds how many lost races ClaimFree tolerates per round
// before re-checking the pool. Each lost race means another request took the
// candidate, so a handful of attempts between recounts is plenty even under
// heavy contention.
const claimCandidates = 8

// ClaimFree atomically finds an unoccupied locker and marks it occupied.
// It returns ErrPoolExhausted when every locker is occupied. The returned
// locker's Occupied field reflects the post-claim state (true).
func ClaimFree(ctx context.Context, db *gorm.DB) (*domain.Locker, error) {
	for {
		for i := 0; i < claimCandidates; i++ {
			var l domain.Locker
			err := db.WithContext(ctx).
				Where("occupied = ?", false).
				First(&l).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPoolExhausted
			}
			if err != nil {
				return nil, err
			}

			res := db.WithContext(ctx).
				Model(&domain.Locker{}).
				Where("id = ? AND occupied = ?", l.ID, false).
				Update("occupied", true)
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 1 {
				l.Occupied = true
				return &l, nil
			}
			// Zero rows: another request claimed this locker between the
			// select and the update. Pick another candidate.
		}

		// Every candidate this round was claimed mid-flight. Lost races do
		// not mean the pool is empty, so only report exhaustion once a
		// recount confirms it; otherwise take another round. Context
		// cancellation surfaces through the queries above.
		_, free, err := CountLockers(ctx, db)
		if err != nil {
			return nil, err
		}
		if free == 0 {
			return nil, ErrPoolExhausted
		}
	}
}

// FreeLocker marks a locker unoccupied. It returns ErrNotFound when the
// locker does not exist or was already free, so double-release is visible
// to the caller instead of silently succeeding.
func FreeLocker(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).
		Model(&domain.Locker{}).
		Where("id = ? AND occupied = ?", id, true).
		Update("occupied", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLocker fetches a single locker by ID, or ErrNotFound if missing.
func GetLocker(ctx context.Context, db *gorm.DB, id uint) (*domain.Locker, error) {
	var l domain.Locker
	if err := db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// CountLockers returns (total, free) pool counts, used for pool gauges and
// the admin listing. On DB error, it returns the error.
func CountLockers(ctx context.Context, db *gorm.DB) (total, free int64, err error) {
	if err = db.WithContext(ctx).Model(&domain.Locker{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = db.WithContext(ctx).
		Model(&domain.Locker{}).
		Where("occupied = ?", false).
		Count(&free).Error
	return total, free, err
}

// ListLockersPage returns a paginated slice of lockers ordered by ID.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListLockersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Locker, error) {
	var out []domain.Locker
	err := db.WithContext(ctx).
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
