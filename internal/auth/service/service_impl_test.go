package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/cardlinkhq/cardlink/internal/auth/domain"
	"github.com/cardlinkhq/cardlink/internal/auth/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Account{}, &domain.Session{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	return New(zap.NewNop(), repository.NewRepository(db), repository.NewSessionRepository(db), node), db
}

func TestSignupAndLogin(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.Signup(context.Background(), domain.SignupRequest{
		Email:    "Holder@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.RawToken)
	assert.Equal(t, "holder@example.com", result.Account.Email)
	assert.Equal(t, "holder", result.Account.DisplayName)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), result.ExpiresAt, time.Minute)

	login, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "holder@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEqual(t, result.RawToken, login.RawToken)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Signup(context.Background(), domain.SignupRequest{Email: "dup@example.com", Password: "long enough"})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), domain.SignupRequest{Email: "dup@example.com", Password: "long enough"})
	assert.ErrorIs(t, err, domain.ErrAccountExists)
}

func TestSignupRejectsShortPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Signup(context.Background(), domain.SignupRequest{Email: "short@example.com", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Signup(context.Background(), domain.SignupRequest{Email: "who@example.com", Password: "long enough"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), domain.LoginRequest{Email: "who@example.com", Password: "wrong wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), domain.LoginRequest{Email: "nobody@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticateLifecycle(t *testing.T) {
	svc, db := newTestService(t)

	result, err := svc.Signup(context.Background(), domain.SignupRequest{Email: "life@example.com", Password: "long enough"})
	require.NoError(t, err)

	session, err := svc.Authenticate(context.Background(), result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, result.Account.ID, session.AccountID)

	// A tampered token never authenticates.
	_, err = svc.Authenticate(context.Background(), result.RawToken+"x")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	require.NoError(t, svc.Logout(context.Background(), result.RawToken))
	_, err = svc.Authenticate(context.Background(), result.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionRevoked)

	// An expired session is rejected at read time.
	expired, err := svc.Login(context.Background(), domain.LoginRequest{Email: "life@example.com", Password: "long enough"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&domain.Session{}).
		Where("id = ?", expired.SessionID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)
	_, err = svc.Authenticate(context.Background(), expired.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}
