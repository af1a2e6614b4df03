package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, device *Device) error
	FindByID(ctx context.Context, id snowflake.ID) (*Device, error)
	FindBySecretHash(ctx context.Context, secretHash string) (*Device, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]Device, error)
	UpdateLastSeen(ctx context.Context, id snowflake.ID, at time.Time) error
	SetActive(ctx context.Context, id snowflake.ID, active bool) error
}
