package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/cardlinkhq/cardlink/internal/analytics/domain"
	"github.com/cardlinkhq/cardlink/internal/application/domain"
	typedomain "github.com/cardlinkhq/cardlink/internal/applicationtype/domain"
	"github.com/cardlinkhq/cardlink/internal/config"
	obsmetrics "github.com/cardlinkhq/cardlink/internal/observability/metrics"
	"github.com/cardlinkhq/cardlink/internal/token"
	userdomain "github.com/cardlinkhq/cardlink/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type completionPayload struct {
	Answers map[string]string `json:"answers"`
}

type service struct {
	log       *zap.Logger
	db        *gorm.DB
	repo      domain.Repository
	users     userdomain.Repository
	types     typedomain.Service
	analytics analyticsdomain.Service
	policy    *config.PolicyHolder
	metrics   *obsmetrics.Metrics
	genID     *snowflake.Node
}

type Params struct {
	fx.In

	Log       *zap.Logger
	DB        *gorm.DB
	Repo      domain.Repository
	Users     userdomain.Repository
	Types     typedomain.Service
	Analytics analyticsdomain.Service
	Policy    *config.PolicyHolder
	Metrics   *obsmetrics.Metrics
	GenID     *snowflake.Node
}

func NewService(p Params) domain.Service {
	return &service{
		log:       p.Log.Named("application.service"),
		db:        p.DB,
		repo:      p.Repo,
		users:     p.Users,
		types:     p.Types,
		analytics: p.Analytics,
		policy:    p.Policy,
		metrics:   p.Metrics,
		genID:     p.GenID,
	}
}

func (s *service) CreateFromScan(ctx context.Context, req domain.ScanRequest) (*domain.ScanResult, error) {
	cardUUID := strings.TrimSpace(req.CardUUID)
	if !token.IsValidCardID(cardUUID) {
		return nil, domain.ErrInvalidCardID
	}

	// The scan body names the reader it claims to be; it must be the
	// device that authenticated the request.
	readerID, err := snowflake.ParseString(strings.TrimSpace(req.ReaderID))
	if err != nil || readerID != req.DeviceID {
		return nil, domain.ErrDeviceMismatch
	}

	holder, err := s.users.FindByCardUUID(ctx, cardUUID)
	if err != nil {
		if errors.Is(err, userdomain.ErrProfileNotFound) {
			return nil, domain.ErrCardNotFound
		}
		return nil, err
	}

	policy := s.policy.Get()
	now := time.Now().UTC()

	if policy.DedupWindow > 0 {
		recent, err := s.repo.CountRecentByCardAndOrg(ctx, holder.CardUUID, req.DeviceOrgID, now.Add(-policy.DedupWindow))
		if err != nil {
			return nil, err
		}
		if recent > 0 {
			return nil, domain.ErrDuplicateScan
		}
	}

	var typeID *snowflake.ID
	if raw := strings.TrimSpace(req.ApplicationTypeID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, typedomain.ErrTypeNotFound
		}
		appType, err := s.types.GetByID(ctx, parsed)
		if err != nil {
			return nil, err
		}
		if appType.OrgID != req.DeviceOrgID || !appType.IsActive {
			return nil, typedomain.ErrTypeNotFound
		}
		typeID = &parsed
	}

	rawToken, err := token.NewPublicToken()
	if err != nil {
		return nil, err
	}

	app := &domain.Application{
		ID:                s.genID.Generate(),
		OrgID:             req.DeviceOrgID,
		UserID:            holder.ID,
		CardUUID:          holder.CardUUID,
		ReaderDeviceID:    req.DeviceID,
		ApplicationTypeID: typeID,
		Status:            domain.StatusAwaitingUser,
		PublicTokenHash:   hashToken(rawToken),
		TokenExpiresAt:    now.Add(policy.TokenTTL),
		Metadata:          datatypes.JSONMap{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, app)
	})
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, analyticsdomain.RecordEventRequest{
		OrgID:         app.OrgID,
		UserID:        &holder.ID,
		ApplicationID: &app.ID,
		EventType:     analyticsdomain.EventScan,
		Metadata:      map[string]any{"reader_device_id": req.DeviceID.String()},
	})
	s.metrics.RecordCardScan(ctx, app.OrgID.String())
	s.metrics.RecordApplicationCreated(ctx, app.OrgID.String(), strings.TrimSpace(req.ApplicationTypeID))

	s.log.Info("application created from scan",
		zap.String("application_id", app.ID.String()),
		zap.String("org_id", app.OrgID.String()),
	)

	return &domain.ScanResult{
		ApplicationID: app.ID.String(),
		PublicToken:   rawToken,
		ExpiresAt:     app.TokenExpiresAt,
	}, nil
}

func (s *service) GetByToken(ctx context.Context, rawToken string) (*domain.ApplicationView, error) {
	cleaned := strings.TrimSpace(rawToken)
	if cleaned == "" {
		return nil, domain.ErrInvalidToken
	}

	app, err := s.repo.FindByTokenHash(ctx, hashToken(cleaned))
	if err != nil {
		return nil, err
	}

	// A completion link is single-use: once the application is
	// completed the token no longer reads it back.
	if app.Status == domain.StatusCompleted {
		return nil, domain.ErrAlreadyCompleted
	}
	if app.TokenExpired(time.Now().UTC()) {
		return nil, domain.ErrTokenExpired
	}

	return toView(app), nil
}

func (s *service) Complete(ctx context.Context, req domain.CompleteRequest) (*domain.ApplicationView, error) {
	appID, err := snowflake.ParseString(strings.TrimSpace(req.ApplicationID))
	if err != nil {
		return nil, domain.ErrInvalidApplicationID
	}

	app, err := s.repo.FindByID(ctx, appID)
	if err != nil {
		return nil, err
	}

	rawToken := strings.TrimSpace(req.RawToken)
	switch {
	case rawToken != "":
		if subtle.ConstantTimeCompare([]byte(hashToken(rawToken)), []byte(app.PublicTokenHash)) != 1 {
			return nil, domain.ErrInvalidToken
		}
		if app.Status == domain.StatusCompleted {
			return nil, domain.ErrAlreadyCompleted
		}
		if app.TokenExpired(time.Now().UTC()) {
			return nil, domain.ErrTokenExpired
		}
	case req.ActorUserID != 0:
		if req.ActorUserID != app.UserID {
			return nil, domain.ErrUnauthorized
		}
		if app.Status == domain.StatusCompleted {
			return nil, domain.ErrAlreadyCompleted
		}
	default:
		return nil, domain.ErrUnauthorized
	}

	if app.ApplicationTypeID != nil {
		appType, err := s.types.GetByID(ctx, *app.ApplicationTypeID)
		if err != nil {
			return nil, err
		}
		questions, err := appType.ParsedQuestions()
		if err != nil {
			return nil, err
		}
		if err := typedomain.ValidateAnswers(questions, req.Answers); err != nil {
			return nil, err
		}
	}

	answers := req.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	encoded, err := json.Marshal(completionPayload{Answers: answers})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	done, err := s.repo.CompleteConditional(ctx, app.ID, datatypes.JSON(encoded), now)
	if err != nil {
		return nil, err
	}
	if !done {
		// Another request won the race or an admin closed it first.
		current, err := s.repo.FindByID(ctx, app.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == domain.StatusClosed {
			return nil, domain.ErrApplicationClosed
		}
		return nil, domain.ErrAlreadyCompleted
	}

	s.recordEvent(ctx, analyticsdomain.RecordEventRequest{
		OrgID:         app.OrgID,
		UserID:        &app.UserID,
		ApplicationID: &app.ID,
		EventType:     analyticsdomain.EventApplicationCompleted,
	})
	s.metrics.RecordApplicationCompleted(ctx, app.OrgID.String())

	s.log.Info("application completed",
		zap.String("application_id", app.ID.String()),
		zap.String("org_id", app.OrgID.String()),
	)

	return s.view(ctx, app.ID)
}

func (s *service) Close(ctx context.Context, orgID, applicationID snowflake.ID) error {
	app, err := s.repo.FindByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.OrgID != orgID {
		return domain.ErrApplicationNotFound
	}
	if app.Status == domain.StatusCompleted {
		return domain.ErrAlreadyCompleted
	}
	if app.Status == domain.StatusClosed {
		return nil
	}

	return s.repo.UpdateStatus(ctx, applicationID, domain.StatusClosed, time.Now().UTC())
}

func (s *service) ListByOrg(ctx context.Context, orgID snowflake.ID, filter domain.ListFilter) ([]domain.ApplicationView, error) {
	apps, err := s.repo.ListByOrg(ctx, orgID, filter)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ApplicationView, 0, len(apps))
	for i := range apps {
		views = append(views, *toView(&apps[i]))
	}
	return views, nil
}

func (s *service) view(ctx context.Context, id snowflake.ID) (*domain.ApplicationView, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toView(app), nil
}

// recordEvent is best-effort: a failed analytics insert never fails
// the operation that produced it.
func (s *service) recordEvent(ctx context.Context, req analyticsdomain.RecordEventRequest) {
	if s.analytics == nil {
		return
	}
	if err := s.analytics.Record(ctx, req); err != nil {
		s.log.Warn("failed to record analytics event",
			zap.String("event_type", req.EventType),
			zap.Error(err),
		)
	}
}

func toView(app *domain.Application) *domain.ApplicationView {
	status := app.Status
	if app.TokenExpired(time.Now().UTC()) && status == domain.StatusAwaitingUser {
		status = domain.StatusExpired
	}

	var answers map[string]string
	if len(app.Payload) > 0 {
		var payload completionPayload
		if err := json.Unmarshal(app.Payload, &payload); err == nil {
			answers = payload.Answers
		}
	}

	view := &domain.ApplicationView{
		ID:             app.ID.String(),
		OrgID:          app.OrgID.String(),
		UserID:         app.UserID.String(),
		CardUUID:       app.CardUUID,
		ReaderDeviceID: app.ReaderDeviceID.String(),
		Status:         status,
		Answers:        answers,
		TokenExpiresAt: app.TokenExpiresAt,
		CompletedAt:    app.CompletedAt,
		CreatedAt:      app.CreatedAt,
	}
	if app.ApplicationTypeID != nil {
		view.ApplicationTypeID = app.ApplicationTypeID.String()
	}
	return view
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
