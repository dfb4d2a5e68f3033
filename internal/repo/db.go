// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver), schema migrations, and locker-pool provisioning.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-locker-backend/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Trace queries through the global tracer provider; a no-op when OTEL is
	// disabled.
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for all domain models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Locker{},
		&domain.Recipient{},
		&domain.DropCredential{},
		&domain.IdentityCredential{},
		&domain.Idempotency{},
	)
}

// EnsurePool provisions the fixed locker pool up to size n. Existing lockers
// are left untouched (including their occupancy), so the call is safe on
// every startup. Labels are "L1".."Ln". Shrinking the pool is not supported;
// a locker may be referenced by a live credential and must not disappear.
func EnsurePool(db *gorm.DB, n int) error {
	if n <= 0 {
		return nil
	}
	var count int64
	if err := db.Model(&domain.Locker{}).Count(&count).Error; err != nil {
		return err
	}
	for i := int(count) + 1; i <= n; i++ {
		l := domain.Locker{Label: fmt.Sprintf("L%d", i)}
		if err := db.Create(&l).Error; err != nil {
			return err
		}
	}
	return nil
}
