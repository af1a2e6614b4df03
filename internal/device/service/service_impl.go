package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cardlinkhq/cardlink/internal/device/domain"
	"github.com/cardlinkhq/cardlink/internal/token"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
		log:   log.Named("device.service"),
		db:    db,
		repo:  repo,
		genID: genID,
	}
}

func (s *service) Create(ctx context.Context, orgID snowflake.ID, req domain.CreateDeviceRequest) (*domain.CreateDeviceResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrg
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	rawSecret, err := token.NewDeviceSecret()
	if err != nil {
		return nil, err
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	now := time.Now().UTC()
	device := &domain.Device{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		Name:       name,
		SecretHash: hashSecret(rawSecret),
		IsActive:   true,
		Metadata:   metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, device)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("reader device registered",
		zap.String("device_id", device.ID.String()),
		zap.String("org_id", orgID.String()),
	)

	return &domain.CreateDeviceResponse{
		Device:  toView(device),
		Secret:  rawSecret,
		Warning: domain.SecretWarning,
	}, nil
}

func (s *service) List(ctx context.Context, orgID snowflake.ID) ([]domain.DeviceView, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrg
	}

	devices, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	views := make([]domain.DeviceView, 0, len(devices))
	for i := range devices {
		views = append(views, toView(&devices[i]))
	}
	return views, nil
}

func (s *service) Authenticate(ctx context.Context, rawSecret string) (*domain.Device, error) {
	secret := strings.TrimSpace(rawSecret)
	if secret == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hashed := hashSecret(secret)
	device, err := s.repo.FindBySecretHash(ctx, hashed)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(hashed), []byte(device.SecretHash)) != 1 {
		return nil, domain.ErrInvalidCredentials
	}

	return device, nil
}

func (s *service) TouchLastSeen(ctx context.Context, id snowflake.ID) error {
	return s.repo.UpdateLastSeen(ctx, id, time.Now().UTC())
}

func (s *service) Deactivate(ctx context.Context, orgID, id snowflake.ID) error {
	device, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if device.OrgID != orgID {
		return domain.ErrDeviceNotFound
	}
	return s.repo.SetActive(ctx, id, false)
}

func toView(device *domain.Device) domain.DeviceView {
	return domain.DeviceView{
		ID:         device.ID.String(),
		OrgID:      device.OrgID.String(),
		Name:       device.Name,
		IsActive:   device.IsActive,
		LastSeenAt: device.LastSeenAt,
		CreatedAt:  device.CreatedAt,
	}
}

func hashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
