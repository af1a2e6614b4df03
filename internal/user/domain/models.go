// Package domain contains persistence models for card holder profiles.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User represents a card holder profile. Each profile is bound to one
// physical card through CardUUID. AuthUserID stays nil until the holder
// claims the profile through a signup link.
type User struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	CardUUID      string        `gorm:"type:text;not null;uniqueIndex:ux_users_card_uuid" json:"card_uuid"`
	Email         string        `gorm:"type:text" json:"email"`
	FirstName     string        `gorm:"column:first_name;type:text" json:"first_name"`
	LastName      string        `gorm:"column:last_name;type:text" json:"last_name"`
	Title         string        `gorm:"type:text" json:"title"`
	Tagline       string        `gorm:"type:text" json:"tagline"`
	Bio           string        `gorm:"type:text" json:"bio"`
	Phone         string        `gorm:"type:text" json:"phone"`
	LinkedIn      string        `gorm:"column:linkedin;type:text" json:"linkedin"`
	Instagram     string        `gorm:"type:text" json:"instagram"`
	GitHub        string        `gorm:"column:github;type:text" json:"github"`
	Website       string        `gorm:"type:text" json:"website"`
	AvatarURL     string        `gorm:"column:avatar_url;type:text" json:"avatar_url"`
	SignupToken   *string       `gorm:"column:signup_token;type:text;uniqueIndex:ux_users_signup_token" json:"-"`
	AuthUserID    *snowflake.ID `gorm:"column:auth_user_id;index" json:"-"`
	EmailVerified bool          `gorm:"column:email_verified;not null;default:false" json:"email_verified"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// FullName joins the holder's first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}
