package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/cardlinkhq/cardlink/internal/user/domain"
	"github.com/cardlinkhq/cardlink/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, domain.Repository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.NewRepository(db)
	return NewService(zap.NewNop(), db, repo, node), repo
}

func TestCreateCardIssuesTokenAndCardID(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.CreateCard(context.Background(), domain.CreateCardRequest{
		Email:     "Holder@Example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)

	assert.Len(t, resp.SignupToken, 32)
	assert.Len(t, resp.CardUUID, 36)
	assert.NotEmpty(t, resp.ID)

	profile, err := svc.GetPublicProfile(context.Background(), resp.CardUUID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", profile.FullName)
	assert.Equal(t, "holder@example.com", profile.Email)
}

func TestGetPublicProfileRejectsMalformedCardID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetPublicProfile(context.Background(), "not-a-card")
	assert.ErrorIs(t, err, domain.ErrInvalidCardID)

	_, err = svc.GetPublicProfile(context.Background(), "123e4567-e89b-12d3-a456-426614174000")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestGetPublicProfileCaseInsensitiveLookup(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.CreateCard(context.Background(), domain.CreateCardRequest{FirstName: "Ada"})
	require.NoError(t, err)

	profile, err := svc.GetPublicProfile(context.Background(), strings.ToUpper(resp.CardUUID))
	require.NoError(t, err)
	assert.Equal(t, resp.CardUUID, profile.CardUUID)
}

func TestClaimSignupToken(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.CreateCard(context.Background(), domain.CreateCardRequest{FirstName: "Ada"})
	require.NoError(t, err)

	authID := snowflake.ID(42)
	user, err := svc.ClaimSignupToken(context.Background(), resp.SignupToken, authID)
	require.NoError(t, err)
	require.NotNil(t, user.AuthUserID)
	assert.Equal(t, authID, *user.AuthUserID)
	assert.True(t, user.EmailVerified)

	// Second claim with a different account must fail.
	_, err = svc.ClaimSignupToken(context.Background(), resp.SignupToken, snowflake.ID(43))
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)
}

func TestClaimSignupTokenUnknownToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ClaimSignupToken(context.Background(), "deadbeef", snowflake.ID(1))
	assert.ErrorIs(t, err, domain.ErrInvalidSignupToken)
}

func TestUpdateProfilePartial(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.CreateCard(context.Background(), domain.CreateCardRequest{FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)

	authID := snowflake.ID(7)
	_, err = svc.ClaimSignupToken(context.Background(), resp.SignupToken, authID)
	require.NoError(t, err)

	title := "Engineer"
	linkedIn := "https://linkedin.com/in/ada"
	updated, err := svc.UpdateProfile(context.Background(), authID, domain.UpdateProfileRequest{
		Title:    &title,
		LinkedIn: &linkedIn,
	})
	require.NoError(t, err)

	assert.Equal(t, "Engineer", updated.Title)
	assert.Equal(t, linkedIn, updated.LinkedIn)
	// Untouched fields survive a partial update.
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "Lovelace", updated.LastName)
}

func TestUpdateProfileRejectsBadEmail(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.CreateCard(context.Background(), domain.CreateCardRequest{FirstName: "Ada"})
	require.NoError(t, err)
	authID := snowflake.ID(9)
	_, err = svc.ClaimSignupToken(context.Background(), resp.SignupToken, authID)
	require.NoError(t, err)

	bad := "not-an-email"
	_, err = svc.UpdateProfile(context.Background(), authID, domain.UpdateProfileRequest{Email: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestGetVCardContainsSocialLines(t *testing.T) {
	svc, repo := newTestService(t)

	resp, err := svc.CreateCard(context.Background(), domain.CreateCardRequest{FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)

	created, err := repo.FindByCardUUID(context.Background(), resp.CardUUID)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateFields(context.Background(), created.ID, map[string]any{
		"linkedin": "https://linkedin.com/in/ada",
		"github":   "https://github.com/ada",
		"bio":      "Works on engines, mostly",
	}))

	export, err := svc.GetVCard(context.Background(), resp.CardUUID)
	require.NoError(t, err)

	assert.Equal(t, "ada-lovelace.vcf", export.FileName)
	assert.True(t, strings.HasPrefix(export.Payload, "BEGIN:VCARD\r\nVERSION:3.0"))
	assert.True(t, strings.HasSuffix(export.Payload, "END:VCARD"))
	assert.Contains(t, export.Payload, "URL;TYPE=LinkedIn:https://linkedin.com/in/ada")
	assert.Contains(t, export.Payload, "URL;TYPE=GitHub:https://github.com/ada")
	assert.Contains(t, export.Payload, `NOTE:Works on engines\, mostly`)
}
