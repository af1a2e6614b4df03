package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/cardlinkhq/cardlink/internal/device/domain"
	"github.com/cardlinkhq/cardlink/internal/device/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Device{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	return NewService(zap.NewNop(), db, repository.NewRepository(db), node), node
}

func TestCreateReturnsSecretOnce(t *testing.T) {
	svc, node := newTestService(t)
	orgID := node.Generate()

	resp, err := svc.Create(context.Background(), orgID, domain.CreateDeviceRequest{Name: "Front desk"})
	require.NoError(t, err)

	assert.Len(t, resp.Secret, 64)
	assert.Equal(t, domain.SecretWarning, resp.Warning)
	assert.True(t, resp.Device.IsActive)

	// Listing never exposes the secret.
	views, err := svc.List(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Front desk", views[0].Name)
}

func TestAuthenticate(t *testing.T) {
	svc, node := newTestService(t)
	orgID := node.Generate()

	resp, err := svc.Create(context.Background(), orgID, domain.CreateDeviceRequest{Name: "Booth reader"})
	require.NoError(t, err)

	device, err := svc.Authenticate(context.Background(), resp.Secret)
	require.NoError(t, err)
	assert.Equal(t, resp.Device.ID, device.ID.String())

	_, err = svc.Authenticate(context.Background(), "not-the-secret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticateInactiveDevice(t *testing.T) {
	svc, node := newTestService(t)
	orgID := node.Generate()

	resp, err := svc.Create(context.Background(), orgID, domain.CreateDeviceRequest{Name: "Retired reader"})
	require.NoError(t, err)

	deviceID, err := snowflake.ParseString(resp.Device.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), orgID, deviceID))

	// An inactive device looks exactly like a bad secret.
	_, err = svc.Authenticate(context.Background(), resp.Secret)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestDeactivateWrongOrg(t *testing.T) {
	svc, node := newTestService(t)
	orgID := node.Generate()

	resp, err := svc.Create(context.Background(), orgID, domain.CreateDeviceRequest{Name: "Reader"})
	require.NoError(t, err)
	deviceID, err := snowflake.ParseString(resp.Device.ID)
	require.NoError(t, err)

	err = svc.Deactivate(context.Background(), node.Generate(), deviceID)
	assert.ErrorIs(t, err, domain.ErrDeviceNotFound)
}

func TestCreateValidation(t *testing.T) {
	svc, node := newTestService(t)

	_, err := svc.Create(context.Background(), 0, domain.CreateDeviceRequest{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrg)

	_, err = svc.Create(context.Background(), node.Generate(), domain.CreateDeviceRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}
