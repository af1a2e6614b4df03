package service

import (
	"context"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cardlinkhq/cardlink/internal/analytics/domain"
	"github.com/cardlinkhq/cardlink/internal/analytics/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const scanWindowDays = 30

type service struct {
	log   *zap.Logger
	repo  repository.Repository
	genID *snowflake.Node
}

func NewService(log *zap.Logger, repo repository.Repository, genID *snowflake.Node) domain.Service {
	return &service{
		log:   log.Named("analytics.service"),
		repo:  repo,
		genID: genID,
	}
}

func (s *service) Record(ctx context.Context, req domain.RecordEventRequest) error {
	if req.OrgID == 0 {
		return domain.ErrInvalidOrg
	}
	if req.EventType != domain.EventScan && req.EventType != domain.EventApplicationCompleted {
		return domain.ErrInvalidEventType
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	event := &domain.Event{
		ID:            s.genID.Generate(),
		OrgID:         req.OrgID,
		UserID:        req.UserID,
		ApplicationID: req.ApplicationID,
		EventType:     req.EventType,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}

	return s.repo.Insert(ctx, event)
}

func (s *service) Aggregate(ctx context.Context, orgID snowflake.ID, req domain.AggregateRequest) (*domain.Summary, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrg
	}

	now := time.Now().UTC()
	counts, err := s.repo.CountApplicationsByStatus(ctx, orgID, req.StartDate, req.EndDate, now)
	if err != nil {
		return nil, err
	}

	breakdown := map[string]int64{
		"pending":       0,
		"awaiting_user": 0,
		"completed":     0,
		"expired":       0,
		"closed":        0,
	}
	var total int64
	for _, c := range counts {
		breakdown[c.Status] = c.Total
		total += c.Total
	}

	var rate float64
	if total > 0 {
		rate = math.Round(float64(breakdown["completed"])/float64(total)*1000) / 10
	}

	scanTimes, err := s.repo.ListScanTimes(ctx, orgID, now.AddDate(0, 0, -scanWindowDays))
	if err != nil {
		return nil, err
	}
	scansByDay := make(map[string]int64, len(scanTimes))
	for _, at := range scanTimes {
		scansByDay[at.UTC().Format("2006-01-02")]++
	}

	return &domain.Summary{
		TotalApplications: total,
		StatusBreakdown:   breakdown,
		CompletionRate:    rate,
		ScansByDay:        scansByDay,
	}, nil
}
