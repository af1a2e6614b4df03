// Package domain contains persistence models for organizations.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Organization represents a tenant that owns reader devices and
// receives informal applications.
type Organization struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"type:text;not null" json:"name"`
	Slug        string            `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	Email       string            `gorm:"type:text" json:"email"`
	Description string            `gorm:"type:text" json:"description"`
	Website     string            `gorm:"type:text" json:"website"`
	LogoURL     string            `gorm:"column:logo_url;type:text" json:"logo_url"`
	CreatedBy   snowflake.ID      `gorm:"column:created_by;not null" json:"created_by"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// Member represents membership of an account in an organization.
type Member struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_org_member,priority:1" json:"org_id"`
	AccountID snowflake.ID `gorm:"column:account_id;not null;index;uniqueIndex:ux_org_member,priority:2" json:"account_id"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "organization_members" }
