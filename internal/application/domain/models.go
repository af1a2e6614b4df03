// Package domain contains the informal application lifecycle types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Application states. awaiting_user moves to completed exactly once;
// closed is an administrative terminal state; expired is derived at
// read time from token_expires_at and only materialized in aggregates.
// pending is reserved for flows without a reader-issued token.
const (
	StatusPending      = "pending"
	StatusAwaitingUser = "awaiting_user"
	StatusCompleted    = "completed"
	StatusExpired      = "expired"
	StatusClosed       = "closed"
)

// Application represents one informal application produced by a card
// scan. Only the SHA-256 hash of the public completion token is
// persisted.
type Application struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID      `gorm:"column:org_id;not null;index" json:"org_id"`
	UserID            snowflake.ID      `gorm:"column:user_id;not null;index" json:"user_id"`
	CardUUID          string            `gorm:"column:card_uuid;type:text;not null;index" json:"card_uuid"`
	ReaderDeviceID    snowflake.ID      `gorm:"column:reader_device_id;not null" json:"reader_device_id"`
	ApplicationTypeID *snowflake.ID     `gorm:"column:application_type_id" json:"application_type_id"`
	Status            string            `gorm:"type:text;not null;index" json:"status"`
	PublicTokenHash   string            `gorm:"column:public_token_hash;type:text;not null;uniqueIndex:ux_applications_token" json:"-"`
	TokenExpiresAt    time.Time         `gorm:"column:token_expires_at;not null" json:"token_expires_at"`
	Payload           datatypes.JSON    `gorm:"type:jsonb" json:"payload"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CompletedAt       *time.Time        `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Application) TableName() string { return "informal_applications" }

// TokenExpired reports whether the completion token is past its
// expiry. Expiry never rewrites the stored status.
func (a Application) TokenExpired(now time.Time) bool {
	return a.Status != StatusCompleted && now.After(a.TokenExpiresAt)
}
