package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status   string
	TypeID   *snowflake.ID
	PageSize int
	Before   *time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, app *Application) error
	FindByID(ctx context.Context, id snowflake.ID) (*Application, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*Application, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID, filter ListFilter) ([]Application, error)
	// CompleteConditional performs the single conditional write that
	// settles racing completion attempts: it succeeds for at most one
	// caller per application.
	CompleteConditional(ctx context.Context, id snowflake.ID, payload datatypes.JSON, at time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, status string, at time.Time) error
	CountRecentByCardAndOrg(ctx context.Context, cardUUID string, orgID snowflake.ID, since time.Time) (int64, error)
}
