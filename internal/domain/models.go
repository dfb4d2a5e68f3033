// Package domain defines the persistence models for lockers, recipients, and
// credentials. These types are mapped with GORM and form the core data layer
// of the smart-locker backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Locker represents one physical compartment in the fixed pool. Lockers are
// provisioned at startup (see repo.EnsurePool) and are never created per
// request; only their occupancy flag changes over time.
//
// Invariant: a locker is occupied exactly when one live DropCredential
// references it. Occupancy is mutated only through the locker repository's
// conditional claim/free operations.
type Locker struct {
	ID        uint           `json:"id"        gorm:"primaryKey;autoIncrement"`
	Label     string         `json:"label"     gorm:"type:varchar(32);not null;uniqueIndex"`
	Occupied  bool           `json:"occupied"  gorm:"not null;default:false;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`
}

// TableName returns the database table name for Locker.
func (Locker) TableName() string { return "lockers" }

// Recipient is a person who can receive deposits. Identity management proper
// (enrollment UI, auth) lives outside this service; the row exists so that
// deposit requests can be validated before any side effect happens.
type Recipient struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"       gorm:"type:varchar(128);not null"`
	Email     string         `json:"email"      gorm:"type:varchar(254);not null;uniqueIndex"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Recipient.
func (Recipient) TableName() string { return "recipients" }

// DropCredential is a single-use credential minted at deposit commit: it binds
// one recipient to one locker and authorizes exactly one collection. The row
// is deleted when the credential is redeemed; deletion is the single-use
// enforcement point (see repo.RedeemDropCredential).
//
// A recipient has at most one outstanding drop credential per locker; the
// unique index on (recipient_id, locker_id) backs that invariant.
type DropCredential struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Token       string         `json:"token"        gorm:"type:char(32);not null;uniqueIndex"`
	RecipientID string         `json:"recipient_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_drop_recipient_locker,priority:1"`
	LockerID    uint           `json:"locker_id"    gorm:"not null;uniqueIndex:ux_drop_recipient_locker,priority:2"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`

	// Recipient is the person authorized to collect. Credentials block
	// recipient deletion (no cascade) so a live token never dangles.
	Recipient Recipient `json:"-" gorm:"foreignKey:RecipientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	// Locker is the compartment this credential opens.
	Locker Locker `json:"-" gorm:"foreignKey:LockerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for DropCredential.
func (DropCredential) TableName() string { return "drop_credentials" }

// IdentityCredential is a standing identity token (personal QR or NFC tag
// UID) bound one-to-one to a recipient. It is not consumed by collection; it
// is used to discover every locker currently holding a package for its owner.
type IdentityCredential struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Token       string         `json:"token"        gorm:"type:varchar(64);not null;uniqueIndex"`
	RecipientID string         `json:"recipient_id" gorm:"type:char(36);not null;uniqueIndex:ux_identity_recipient"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`

	// Recipient is the owner of this identity token.
	Recipient Recipient `json:"-" gorm:"foreignKey:RecipientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for IdentityCredential.
func (IdentityCredential) TableName() string { return "identity_credentials" }
