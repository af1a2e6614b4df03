// Package domain contains the append-only analytics event log.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Event types recorded by the platform.
const (
	EventScan                 = "scan"
	EventApplicationCompleted = "application_completed"
)

// Event is one row in the append-only analytics log. Events are never
// updated or deleted; they exist only to be aggregated.
type Event struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID      `gorm:"column:org_id;not null;index" json:"org_id"`
	UserID        *snowflake.ID     `gorm:"column:user_id;index" json:"user_id"`
	ApplicationID *snowflake.ID     `gorm:"column:application_id;index" json:"application_id"`
	EventType     string            `gorm:"column:event_type;type:text;not null;index" json:"event_type"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName sets the database table name.
func (Event) TableName() string { return "analytics_events" }
