package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// roleRanks orders roles so a higher role always passes a lower gate.
var roleRanks = map[string]int{
	RoleMember: 0,
	RoleAdmin:  1,
	RoleOwner:  2,
}

// RoleAtLeast reports whether have meets the required role.
func RoleAtLeast(have, required string) bool {
	haveRank, ok := roleRanks[have]
	if !ok {
		return false
	}
	requiredRank, ok := roleRanks[required]
	if !ok {
		return false
	}
	return haveRank >= requiredRank
}

// IsValidRole reports whether the role name is known.
func IsValidRole(role string) bool {
	_, ok := roleRanks[role]
	return ok
}

type Service interface {
	Create(ctx context.Context, accountID snowflake.ID, req CreateOrganizationRequest) (*OrganizationResponse, error)
	GetBySlug(ctx context.Context, accountID snowflake.ID, slug string) (*OrganizationResponse, error)
	ListByAccount(ctx context.Context, accountID snowflake.ID) ([]OrganizationListResponseItem, error)
	// RequireAccess resolves the caller's role in the organization and
	// enforces the minimum required role.
	RequireAccess(ctx context.Context, orgID, accountID snowflake.ID, requiredRole string) (string, error)
}

type CreateOrganizationRequest struct {
	Name        string
	Email       string
	Description string
	Website     string
}

type OrganizationResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Email       string `json:"email"`
	Description string `json:"description"`
	Website     string `json:"website"`
	LogoURL     string `json:"logo_url"`
	Role        string `json:"role,omitempty"`
}

type OrganizationListResponseItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrOrganizationNotFound = errors.New("organization_not_found")
	ErrInvalidAccount       = errors.New("invalid_account")
	ErrNotAMember           = errors.New("not_a_member")
	ErrInsufficientRole     = errors.New("insufficient_role")
	ErrInvalidRole          = errors.New("invalid_role")
)
