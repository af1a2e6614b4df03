package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// SecretWarning is returned alongside the raw secret at creation time.
const SecretWarning = "Save this secret now. It will not be shown again."

type Service interface {
	Create(ctx context.Context, orgID snowflake.ID, req CreateDeviceRequest) (*CreateDeviceResponse, error)
	List(ctx context.Context, orgID snowflake.ID) ([]DeviceView, error)
	// Authenticate resolves a device from its raw bearer secret.
	// Inactive devices are indistinguishable from unknown secrets.
	Authenticate(ctx context.Context, rawSecret string) (*Device, error)
	TouchLastSeen(ctx context.Context, id snowflake.ID) error
	Deactivate(ctx context.Context, orgID, id snowflake.ID) error
}

type CreateDeviceRequest struct {
	Name     string
	Metadata map[string]any
}

// CreateDeviceResponse is the only place the raw secret ever appears.
type CreateDeviceResponse struct {
	Device  DeviceView `json:"data"`
	Secret  string     `json:"secret"`
	Warning string     `json:"warning"`
}

// DeviceView is the device read model without the secret hash.
type DeviceView struct {
	ID         string     `json:"id"`
	OrgID      string     `json:"org_id"`
	Name       string     `json:"name"`
	IsActive   bool       `json:"is_active"`
	LastSeenAt *time.Time `json:"last_seen_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

var (
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidOrg         = errors.New("invalid_org")
	ErrDeviceNotFound     = errors.New("device_not_found")
	ErrInvalidCredentials = errors.New("invalid_device_credentials")
)
