package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// CreateFromScan is the only creation path. The device has already
	// been authenticated; ReaderID must name that same device.
	CreateFromScan(ctx context.Context, req ScanRequest) (*ScanResult, error)
	GetByToken(ctx context.Context, rawToken string) (*ApplicationView, error)
	Complete(ctx context.Context, req CompleteRequest) (*ApplicationView, error)
	Close(ctx context.Context, orgID, applicationID snowflake.ID) error
	ListByOrg(ctx context.Context, orgID snowflake.ID, filter ListFilter) ([]ApplicationView, error)
}

type ScanRequest struct {
	DeviceID          snowflake.ID
	DeviceOrgID       snowflake.ID
	ReaderID          string
	CardUUID          string
	ApplicationTypeID string
}

// ScanResult carries the raw public token exactly once. Handlers for
// reader devices must not echo it back; it reaches the applicant
// through the completion link only.
type ScanResult struct {
	ApplicationID string
	PublicToken   string
	ExpiresAt     time.Time
}

type CompleteRequest struct {
	ApplicationID string
	RawToken      string
	// ActorUserID is the authenticated card holder's profile ID, zero
	// when the caller presents a token instead of a session.
	ActorUserID snowflake.ID
	Answers     map[string]string
}

// ApplicationView is the read model served over HTTP. Status reflects
// derived expiry without rewriting the stored row.
type ApplicationView struct {
	ID                string            `json:"id"`
	OrgID             string            `json:"org_id"`
	UserID            string            `json:"user_id"`
	CardUUID          string            `json:"card_uuid"`
	ReaderDeviceID    string            `json:"reader_device_id"`
	ApplicationTypeID string            `json:"application_type_id,omitempty"`
	Status            string            `json:"status"`
	Answers           map[string]string `json:"answers,omitempty"`
	TokenExpiresAt    time.Time         `json:"token_expires_at"`
	CompletedAt       *time.Time        `json:"completed_at"`
	CreatedAt         time.Time         `json:"created_at"`
}

var (
	ErrInvalidCardID         = errors.New("invalid_card_id")
	ErrCardNotFound          = errors.New("card_not_found")
	ErrDeviceMismatch        = errors.New("device_mismatch")
	ErrApplicationNotFound   = errors.New("application_not_found")
	ErrInvalidToken          = errors.New("invalid_token")
	ErrTokenExpired          = errors.New("token_expired")
	ErrAlreadyCompleted      = errors.New("already_completed")
	ErrApplicationClosed     = errors.New("application_closed")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidApplicationID  = errors.New("invalid_application_id")
	ErrDuplicateScan         = errors.New("duplicate_scan")
	ErrInvalidApplicationOrg = errors.New("invalid_application_org")
)
