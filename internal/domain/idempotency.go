// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency represents a recorded result of a previously processed deposit
// request, keyed by (user_id, recipient_id, key). Delivery kiosks retry
// aggressively on flaky links; replaying the original credential instead of
// re-running the deposit keeps a retried POST from claiming a second locker.
type Idempotency struct {
	ID              string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID          string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_recipient_key,priority:1"`
	RecipientID     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_recipient_key,priority:2"`
	Key             string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_recipient_key,priority:3"`
	CredentialToken string    `gorm:"type:TEXT NOT NULL"`
	Status          int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt       time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt       time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
