package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/cardlinkhq/cardlink/internal/user/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO users (id, card_uuid, email, first_name, last_name, signup_token, email_verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.CardUUID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.SignupToken,
		user.EmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByCardUUID(ctx context.Context, cardUUID string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, "lower(card_uuid) = lower(?)", cardUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindBySignupToken(ctx context.Context, signupToken string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, "signup_token = ?", signupToken).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidSignupToken
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByAuthUserID(ctx context.Context, authUserID snowflake.ID) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, "auth_user_id = ?", authUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// LinkAuthUser attaches an auth account to an unclaimed profile. The
// conditional predicate keeps a second claim from stealing the profile.
func (r *repository) LinkAuthUser(ctx context.Context, id snowflake.ID, authUserID snowflake.ID) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE users SET auth_user_id = ?, email_verified = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND auth_user_id IS NULL`,
		authUserID,
		true,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
