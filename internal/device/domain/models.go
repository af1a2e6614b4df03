// Package domain contains persistence models for reader devices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Device represents an NFC reader owned by an organization. Only the
// SHA-256 hash of its bearer secret is persisted; the raw secret is
// returned exactly once at creation.
type Device struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID      `gorm:"column:org_id;not null;index" json:"org_id"`
	Name       string            `gorm:"type:text;not null" json:"name"`
	SecretHash string            `gorm:"column:secret_hash;type:text;not null;uniqueIndex:ux_reader_devices_secret" json:"-"`
	IsActive   bool              `gorm:"column:is_active;not null;default:true" json:"is_active"`
	LastSeenAt *time.Time        `gorm:"column:last_seen_at" json:"last_seen_at"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Device) TableName() string { return "reader_devices" }
