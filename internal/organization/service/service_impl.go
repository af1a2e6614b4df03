package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cardlinkhq/cardlink/internal/organization/domain"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	log   *zap.Logger
	db    *gorm.DB
	repo  domain.Repository
	genID *snowflake.Node
}

func NewService(log *zap.Logger, db *gorm.DB, repo domain.Repository, genID *snowflake.Node) domain.Service {
	return &service{
		log:   log.Named("organization.service"),
		db:    db,
		repo:  repo,
		genID: genID,
	}
}

func (s *service) Create(ctx context.Context, accountID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	if accountID == 0 {
		return nil, domain.ErrInvalidAccount
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	orgID := s.genID.Generate()
	org := domain.Organization{
		ID:          orgID,
		Name:        name,
		Slug:        slug.Make(name),
		Email:       strings.TrimSpace(req.Email),
		Description: strings.TrimSpace(req.Description),
		Website:     strings.TrimSpace(req.Website),
		CreatedBy:   accountID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}

		member := domain.Member{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			AccountID: accountID,
			Role:      domain.RoleOwner,
			CreatedAt: now,
		}

		return repo.AddMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("organization created",
		zap.String("org_id", orgID.String()),
		zap.String("slug", org.Slug),
	)

	return &domain.OrganizationResponse{
		ID:          orgID.String(),
		Name:        name,
		Slug:        org.Slug,
		Email:       org.Email,
		Description: org.Description,
		Website:     org.Website,
		Role:        domain.RoleOwner,
	}, nil
}

func (s *service) GetBySlug(ctx context.Context, accountID snowflake.ID, rawSlug string) (*domain.OrganizationResponse, error) {
	cleaned := strings.TrimSpace(rawSlug)
	if cleaned == "" {
		return nil, domain.ErrInvalidOrganization
	}

	org, err := s.repo.GetBySlug(ctx, cleaned)
	if err != nil {
		return nil, err
	}

	role, err := s.RequireAccess(ctx, org.ID, accountID, domain.RoleMember)
	if err != nil {
		return nil, err
	}

	return &domain.OrganizationResponse{
		ID:          org.ID.String(),
		Name:        org.Name,
		Slug:        org.Slug,
		Email:       org.Email,
		Description: org.Description,
		Website:     org.Website,
		LogoURL:     org.LogoURL,
		Role:        role,
	}, nil
}

func (s *service) ListByAccount(ctx context.Context, accountID snowflake.ID) ([]domain.OrganizationListResponseItem, error) {
	if accountID == 0 {
		return nil, domain.ErrInvalidAccount
	}

	items, err := s.repo.ListOrganizationsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.OrganizationListResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.OrganizationListResponseItem{
			ID:        item.ID.String(),
			Name:      item.Name,
			Slug:      item.Slug,
			Role:      item.Role,
			CreatedAt: item.CreatedAt,
		})
	}

	return resp, nil
}

func (s *service) RequireAccess(ctx context.Context, orgID, accountID snowflake.ID, requiredRole string) (string, error) {
	if accountID == 0 {
		return "", domain.ErrInvalidAccount
	}
	if !domain.IsValidRole(requiredRole) {
		return "", domain.ErrInvalidRole
	}

	role, err := s.repo.GetMemberRole(ctx, orgID, accountID)
	if err != nil {
		return "", err
	}

	if !domain.RoleAtLeast(role, requiredRole) {
		return "", domain.ErrInsufficientRole
	}

	return role, nil
}
