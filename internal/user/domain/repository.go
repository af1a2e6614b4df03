package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	FindByCardUUID(ctx context.Context, cardUUID string) (*User, error)
	FindBySignupToken(ctx context.Context, signupToken string) (*User, error)
	FindByAuthUserID(ctx context.Context, authUserID snowflake.ID) (*User, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	LinkAuthUser(ctx context.Context, id snowflake.ID, authUserID snowflake.ID) (bool, error)
}
