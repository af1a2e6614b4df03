package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateCard(ctx context.Context, req CreateCardRequest) (*CreateCardResponse, error)
	GetPublicProfile(ctx context.Context, cardUUID string) (*PublicProfile, error)
	GetVCard(ctx context.Context, cardUUID string) (*VCardExport, error)
	GetProfile(ctx context.Context, authUserID snowflake.ID) (*User, error)
	UpdateProfile(ctx context.Context, authUserID snowflake.ID, req UpdateProfileRequest) (*User, error)
	ClaimSignupToken(ctx context.Context, signupToken string, authUserID snowflake.ID) (*User, error)
}

// CreateCardRequest provisions a profile for a freshly written card.
type CreateCardRequest struct {
	Email     string
	FirstName string
	LastName  string
}

type CreateCardResponse struct {
	ID          string `json:"id"`
	CardUUID    string `json:"card_uuid"`
	SignupToken string `json:"signup_token"`
}

// PublicProfile is the read model served on a card scan. It never
// carries tokens or claim state.
type PublicProfile struct {
	CardUUID  string `json:"card_uuid"`
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Title     string `json:"title"`
	Tagline   string `json:"tagline"`
	Bio       string `json:"bio"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	LinkedIn  string `json:"linkedin"`
	Instagram string `json:"instagram"`
	GitHub    string `json:"github"`
	Website   string `json:"website"`
	AvatarURL string `json:"avatar_url"`
}

// VCardExport carries a rendered vCard payload with its download name.
type VCardExport struct {
	FileName string
	Payload  string
}

// UpdateProfileRequest applies a partial profile update. Nil fields
// are left untouched.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Title     *string `json:"title"`
	Tagline   *string `json:"tagline"`
	Bio       *string `json:"bio"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	LinkedIn  *string `json:"linkedin"`
	Instagram *string `json:"instagram"`
	GitHub    *string `json:"github"`
	Website   *string `json:"website"`
	AvatarURL *string `json:"avatar_url"`
}

var (
	ErrInvalidCardID      = errors.New("invalid_card_id")
	ErrProfileNotFound    = errors.New("profile_not_found")
	ErrInvalidSignupToken = errors.New("invalid_signup_token")
	ErrAlreadyClaimed     = errors.New("already_claimed")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidUser        = errors.New("invalid_user")
)
