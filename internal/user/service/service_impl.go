package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cardlinkhq/cardlink/internal/token"
	"github.com/cardlinkhq/cardlink/internal/user/domain"
	"github.com/cardlinkhq/cardlink/internal/user/vcard"
	"github.com/google/uuid"
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
		log:   log.Named("user.service"),
		db:    db,
		repo:  repo,
		genID: genID,
	}
}

func (s *service) CreateCard(ctx context.Context, req domain.CreateCardRequest) (*domain.CreateCardResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email != "" {
		normalized, err := normalizeEmail(email)
		if err != nil {
			return nil, domain.ErrInvalidEmail
		}
		email = normalized
	}

	signupToken, err := token.NewSignupToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:          s.genID.Generate(),
		CardUUID:    uuid.NewString(),
		Email:       email,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		SignupToken: &signupToken,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("card provisioned", zap.String("user_id", user.ID.String()))

	return &domain.CreateCardResponse{
		ID:          user.ID.String(),
		CardUUID:    user.CardUUID,
		SignupToken: signupToken,
	}, nil
}

func (s *service) GetPublicProfile(ctx context.Context, cardUUID string) (*domain.PublicProfile, error) {
	user, err := s.findByCardID(ctx, cardUUID)
	if err != nil {
		return nil, err
	}

	return &domain.PublicProfile{
		CardUUID:  user.CardUUID,
		FullName:  user.FullName(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Title:     user.Title,
		Tagline:   user.Tagline,
		Bio:       user.Bio,
		Email:     user.Email,
		Phone:     user.Phone,
		LinkedIn:  user.LinkedIn,
		Instagram: user.Instagram,
		GitHub:    user.GitHub,
		Website:   user.Website,
		AvatarURL: user.AvatarURL,
	}, nil
}

func (s *service) GetVCard(ctx context.Context, cardUUID string) (*domain.VCardExport, error) {
	user, err := s.findByCardID(ctx, cardUUID)
	if err != nil {
		return nil, err
	}

	payload := vcard.Render(vcard.Data{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Title:     user.Title,
		Email:     user.Email,
		Phone:     user.Phone,
		Website:   user.Website,
		LinkedIn:  user.LinkedIn,
		GitHub:    user.GitHub,
		Instagram: user.Instagram,
		Bio:       user.Bio,
	})

	return &domain.VCardExport{
		FileName: vcard.FileName(user.FullName()),
		Payload:  payload,
	}, nil
}

func (s *service) GetProfile(ctx context.Context, authUserID snowflake.ID) (*domain.User, error) {
	if authUserID == 0 {
		return nil, domain.ErrInvalidUser
	}
	return s.repo.FindByAuthUserID(ctx, authUserID)
}

func (s *service) UpdateProfile(ctx context.Context, authUserID snowflake.ID, req domain.UpdateProfileRequest) (*domain.User, error) {
	user, err := s.GetProfile(ctx, authUserID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	assign := func(column string, value *string) {
		if value != nil {
			fields[column] = strings.TrimSpace(*value)
		}
	}
	assign("first_name", req.FirstName)
	assign("last_name", req.LastName)
	assign("title", req.Title)
	assign("tagline", req.Tagline)
	assign("bio", req.Bio)
	assign("phone", req.Phone)
	assign("linkedin", req.LinkedIn)
	assign("instagram", req.Instagram)
	assign("github", req.GitHub)
	assign("website", req.Website)
	assign("avatar_url", req.AvatarURL)

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" {
			normalized, err := normalizeEmail(email)
			if err != nil {
				return nil, domain.ErrInvalidEmail
			}
			email = normalized
		}
		fields["email"] = email
	}

	if len(fields) == 0 {
		return user, nil
	}
	fields["updated_at"] = time.Now().UTC()

	if err := s.repo.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, user.ID)
}

func (s *service) ClaimSignupToken(ctx context.Context, signupToken string, authUserID snowflake.ID) (*domain.User, error) {
	raw := strings.TrimSpace(signupToken)
	if raw == "" {
		return nil, domain.ErrInvalidSignupToken
	}
	if authUserID == 0 {
		return nil, domain.ErrInvalidUser
	}

	user, err := s.repo.FindBySignupToken(ctx, raw)
	if err != nil {
		return nil, err
	}
	if user.AuthUserID != nil {
		return nil, domain.ErrAlreadyClaimed
	}

	linked, err := s.repo.LinkAuthUser(ctx, user.ID, authUserID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, domain.ErrAlreadyClaimed
	}

	s.log.Info("profile claimed",
		zap.String("user_id", user.ID.String()),
		zap.String("auth_user_id", authUserID.String()),
	)

	return s.repo.FindByID(ctx, user.ID)
}

func (s *service) findByCardID(ctx context.Context, cardUUID string) (*domain.User, error) {
	raw := strings.TrimSpace(cardUUID)
	if !token.IsValidCardID(raw) {
		return nil, domain.ErrInvalidCardID
	}
	return s.repo.FindByCardUUID(ctx, raw)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
