package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cardlinkhq/cardlink/internal/analytics/domain"
	"gorm.io/gorm"
)

type StatusCount struct {
	Status string
	Total  int64
}

type Repository interface {
	Insert(ctx context.Context, event *domain.Event) error
	CountApplicationsByStatus(ctx context.Context, orgID snowflake.ID, start, end *time.Time, now time.Time) ([]StatusCount, error)
	ListScanTimes(ctx context.Context, orgID snowflake.ID, since time.Time) ([]time.Time, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, event *domain.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// CountApplicationsByStatus folds stale awaiting_user rows into the
// expired bucket at read time; stored status is never rewritten.
func (r *repository) CountApplicationsByStatus(ctx context.Context, orgID snowflake.ID, start, end *time.Time, now time.Time) ([]StatusCount, error) {
	query := `SELECT CASE WHEN status = 'awaiting_user' AND token_expires_at < ? THEN 'expired' ELSE status END AS status, COUNT(*) AS total
		 FROM informal_applications
		 WHERE org_id = ?`
	args := []any{now, orgID}
	if start != nil {
		query += ` AND created_at >= ?`
		args = append(args, *start)
	}
	if end != nil {
		query += ` AND created_at <= ?`
		args = append(args, *end)
	}
	query += ` GROUP BY 1`

	var counts []StatusCount
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *repository) ListScanTimes(ctx context.Context, orgID snowflake.ID, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("org_id = ? AND event_type = ? AND created_at >= ?", orgID, domain.EventScan, since).
		Order("created_at ASC").
		Pluck("created_at", &times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}
