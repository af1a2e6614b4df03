package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/cardlinkhq/cardlink/internal/applicationtype/domain"
	"github.com/cardlinkhq/cardlink/internal/config"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type service struct {
	log    *zap.Logger
	db     *gorm.DB
	genID  *snowflake.Node
	policy *config.PolicyHolder
}

func NewService(log *zap.Logger, db *gorm.DB, genID *snowflake.Node, policy *config.PolicyHolder) domain.Service {
	return &service{
		log:    log.Named("applicationtype.service"),
		db:     db,
		genID:  genID,
		policy: policy,
	}
}

func (s *service) Create(ctx context.Context, orgID snowflake.ID, req domain.CreateTypeRequest) (*domain.ApplicationType, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrg
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	if max := s.policy.Get().MaxQuestions; len(req.Questions) > max {
		return nil, domain.ErrTooManyQuestions
	}
	if err := domain.ValidateQuestions(req.Questions); err != nil {
		return nil, err
	}

	questions := req.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	encoded, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &domain.ApplicationType{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Slug:        slug.Make(title),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Questions:   datatypes.JSON(encoded),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}

	s.log.Info("application type created",
		zap.String("type_id", record.ID.String()),
		zap.String("org_id", orgID.String()),
	)

	return record, nil
}

func (s *service) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.ApplicationType, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrg
	}

	var types []domain.ApplicationType
	err := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&types).Error
	if err != nil {
		return nil, err
	}
	return types, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.ApplicationType, error) {
	var record domain.ApplicationType
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTypeNotFound
		}
		return nil, err
	}
	return &record, nil
}
