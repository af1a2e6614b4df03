package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cardlinkhq/cardlink/internal/application/domain"
	"gorm.io/datatypes"
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

func (r *repository) Create(ctx context.Context, app *domain.Application) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Application, error) {
	var app domain.Application
	if err := r.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (r *repository) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.Application, error) {
	var app domain.Application
	if err := r.db.WithContext(ctx).First(&app, "public_token_hash = ?", tokenHash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	return &app, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Application, error) {
	query := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TypeID != nil {
		query = query.Where("application_type_id = ?", *filter.TypeID)
	}
	if filter.Before != nil {
		query = query.Where("created_at < ?", *filter.Before)
	}

	limit := filter.PageSize
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var apps []domain.Application
	err := query.Order("created_at DESC").Limit(limit).Find(&apps).Error
	if err != nil {
		return nil, err
	}
	return apps, nil
}

// CompleteConditional settles completion races in a single write. Only
// a row still awaiting the applicant is eligible, so at most one of
// two concurrent attempts sees RowsAffected == 1.
func (r *repository) CompleteConditional(ctx context.Context, id snowflake.ID, payload datatypes.JSON, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE informal_applications
		 SET status = ?, payload = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		domain.StatusCompleted,
		payload,
		at,
		at,
		id,
		domain.StatusAwaitingUser,
		domain.StatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id snowflake.ID, status string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": at,
		}).Error
}

func (r *repository) CountRecentByCardAndOrg(ctx context.Context, cardUUID string, orgID snowflake.ID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("card_uuid = ? AND org_id = ? AND created_at >= ?", cardUUID, orgID, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
