package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/cardlinkhq/cardlink/internal/analytics/domain"
	analyticsrepo "github.com/cardlinkhq/cardlink/internal/analytics/repository"
	analyticsservice "github.com/cardlinkhq/cardlink/internal/analytics/service"
	"github.com/cardlinkhq/cardlink/internal/application/domain"
	"github.com/cardlinkhq/cardlink/internal/application/repository"
	typedomain "github.com/cardlinkhq/cardlink/internal/applicationtype/domain"
	typeservice "github.com/cardlinkhq/cardlink/internal/applicationtype/service"
	"github.com/cardlinkhq/cardlink/internal/config"
	userdomain "github.com/cardlinkhq/cardlink/internal/user/domain"
	userrepo "github.com/cardlinkhq/cardlink/internal/user/repository"
	userservice "github.com/cardlinkhq/cardlink/internal/user/service"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	repo     domain.Repository
	users    userdomain.Service
	types    typedomain.Service
	events   analyticsdomain.Service
	db       *gorm.DB
	node     *snowflake.Node
	policy   *config.PolicyHolder
	orgID    snowflake.ID
	deviceID snowflake.ID
	cardUUID string
	holderID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Application{},
		&userdomain.User{},
		&typedomain.ApplicationType{},
		&analyticsdomain.Event{},
	))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	policy := &config.PolicyHolder{}
	policy.Set(config.DefaultApplicationPolicy())

	log := zap.NewNop()
	uRepo := userrepo.NewRepository(db)
	users := userservice.NewService(log, db, uRepo, node)
	types := typeservice.NewService(log, db, node, policy)
	events := analyticsservice.NewService(log, analyticsrepo.NewRepository(db), node)
	appRepo := repository.NewRepository(db)

	svc := NewService(Params{
		Log:       log,
		DB:        db,
		Repo:      appRepo,
		Users:     uRepo,
		Types:     types,
		Analytics: events,
		Policy:    policy,
		GenID:     node,
	})

	card, err := users.CreateCard(context.Background(), userdomain.CreateCardRequest{FirstName: "Ada"})
	require.NoError(t, err)
	holder, err := uRepo.FindByCardUUID(context.Background(), card.CardUUID)
	require.NoError(t, err)

	return &fixture{
		svc:      svc,
		repo:     appRepo,
		users:    users,
		types:    types,
		events:   events,
		db:       db,
		node:     node,
		policy:   policy,
		orgID:    node.Generate(),
		deviceID: node.Generate(),
		cardUUID: card.CardUUID,
		holderID: holder.ID,
	}
}

func (f *fixture) scan(t *testing.T) *domain.ScanResult {
	t.Helper()
	result, err := f.svc.CreateFromScan(context.Background(), domain.ScanRequest{
		DeviceID:    f.deviceID,
		DeviceOrgID: f.orgID,
		ReaderID:    f.deviceID.String(),
		CardUUID:    f.cardUUID,
	})
	require.NoError(t, err)
	return result
}

func TestCreateFromScan(t *testing.T) {
	f := newFixture(t)

	result := f.scan(t)
	assert.Len(t, result.PublicToken, 56)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), result.ExpiresAt, time.Minute)

	appID, err := snowflake.ParseString(result.ApplicationID)
	require.NoError(t, err)
	app, err := f.repo.FindByID(context.Background(), appID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingUser, app.Status)
	assert.Equal(t, f.holderID, app.UserID)
	assert.Equal(t, f.orgID, app.OrgID)
	// The raw token is never stored.
	assert.NotContains(t, app.PublicTokenHash, result.PublicToken)

	// A scan records one analytics event attributed to the org and holder.
	summary, err := f.events.Aggregate(context.Background(), f.orgID, analyticsdomain.AggregateRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalApplications)
	var day string
	for d := range summary.ScansByDay {
		day = d
	}
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), day)
}

func TestCreateFromScanRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateFromScan(context.Background(), domain.ScanRequest{
		DeviceID:    f.deviceID,
		DeviceOrgID: f.orgID,
		ReaderID:    f.deviceID.String(),
		CardUUID:    "not-a-uuid",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCardID)

	_, err = f.svc.CreateFromScan(context.Background(), domain.ScanRequest{
		DeviceID:    f.deviceID,
		DeviceOrgID: f.orgID,
		ReaderID:    f.node.Generate().String(),
		CardUUID:    f.cardUUID,
	})
	assert.ErrorIs(t, err, domain.ErrDeviceMismatch)

	_, err = f.svc.CreateFromScan(context.Background(), domain.ScanRequest{
		DeviceID:    f.deviceID,
		DeviceOrgID: f.orgID,
		ReaderID:    f.deviceID.String(),
		CardUUID:    "123e4567-e89b-12d3-a456-426614174000",
	})
	assert.ErrorIs(t, err, domain.ErrCardNotFound)
}

func TestScanDedupWindow(t *testing.T) {
	f := newFixture(t)

	// Dedup is off by default: duplicate scans both create applications.
	f.scan(t)
	f.scan(t)

	f.policy.Set(config.ApplicationPolicy{
		TokenTTL:     7 * 24 * time.Hour,
		DedupWindow:  time.Hour,
		MaxQuestions: 50,
	})

	_, err := f.svc.CreateFromScan(context.Background(), domain.ScanRequest{
		DeviceID:    f.deviceID,
		DeviceOrgID: f.orgID,
		ReaderID:    f.deviceID.String(),
		CardUUID:    f.cardUUID,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateScan)
}

func TestCompleteWithToken(t *testing.T) {
	f := newFixture(t)
	result := f.scan(t)

	view, err := f.svc.Complete(context.Background(), domain.CompleteRequest{
		ApplicationID: result.ApplicationID,
		RawToken:      result.PublicToken,
		Answers:       map[string]string{"q1": "yes"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, view.Status)
	require.NotNil(t, view.CompletedAt)
	assert.Equal(t, "yes", view.Answers["q1"])

	// Replay with the same token is rejected and changes nothing.
	firstCompletedAt := *view.CompletedAt
	_, err = f.svc.Complete(context.Background(), domain.CompleteRequest{
		ApplicationID: result.ApplicationID,
		RawToken:      result.PublicToken,
		Answers:       map[string]string{"q1": "overwritten"},
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)

	appID, err := snowflake.ParseString(result.ApplicationID)
	require.NoError(t, err)
	app, err := f.repo.FindByID(context.Background(), appID)
	require.NoError(t, err)
	require.NotNil(t, app.CompletedAt)
	assert.Equal(t, firstCompletedAt.Unix(), app.CompletedAt.Unix())
	assert.Contains(t, string(app.Payload), "yes")
	assert.NotContains(t, string(app.Payload), "overwritten")
}

func TestGetByTokenAfterCompletion(t *testing.T) {
	f := newFixture(t)
	result := f.scan(t)

	view, err := f.svc.GetByToken(context.Background(), result.PublicToken)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingUser, view.Status)

	_, err = f.svc.Complete(context.Background(), domain.CompleteRequest{
		ApplicationID: result.ApplicationID,
		RawToken:      result.PublicToken,
		Answers:       map[string]string{"q1": "yes"},
	})
	require.NoError(t, err)

	// The link is single-use: the submitted answers must not leak back
	// to whoever still holds the token.
	_, err = f.svc.GetByToken(context.Background(), result.PublicToken)
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)
}

func TestCompleteWithWrongToken(t *testing.T) {
	f := newFixture(t)
	result := f.scan(t)

	_, err := f.svc.Complete(context.Background(), domain.CompleteRequest{
		ApplicationID: result.ApplicationID,
		RawToken:      "deadbeef",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestCompleteExpiredToken(t *testing.T) {
	f := newFixture(t)
	result := f.scan(t)

	appID, err := snowflake.ParseString(result.ApplicationID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&domain.Application{}).
		Where("id = ?", appID).
		Update("token_expires_at", time.Now().Add(-time.Hour)).Error)

	_, err = f.svc.Complete(context.Background(), domain.CompleteRequest{
		ApplicationID: result.ApplicationID,
		RawToken:      result.PublicToken,
		Answers:       map[string]string{"q1": "late"},
	})
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	// The expired token also fails the anonymous read path.
	_, err = f.svc.GetByToken(context.Background(), result.PublicToken)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestCompleteAsOwner(t *testing.T) {
	f := newFixture(t)
	result := f.scan(t)

	view, err := f.svc.Complete(context.Background(), domain.CompleteRequest{
		ApplicationID: result.ApplicationID,
		ActorUserID:   f.holderID,
		Answers:       map[string]string{"note": "walked by"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, view.Status)

	// A different user cannot complete someone else's application.
	other := f.scan(t)
	_, err = f.svc.Complete(context.Background(), domain.CompleteRequest{
		ApplicationID: other.ApplicationID,
		ActorUserID:   f.node.Generate(),
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.Complete(context.Background(), domain.CompleteRequest{
		ApplicationID: other.ApplicationID,
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCompletionRaceHasOneWinner(t *testing.T) {
	f := newFixture(t)
	result := f.scan(t)
	appID, err := snowflake.ParseString(result.ApplicationID)
	require.NoError(t, err)

	// Two racing requests both pass the token check and reach the
	// conditional write; only the first one flips the row.
	payload, err := json.Marshal(completionPayload{Answers: map[string]string{"q1": "yes"}})
	require.NoError(t, err)

	now := time.Now().UTC()
	won, err := f.repo.CompleteConditional(context.Background(), appID, datatypes.JSON(payload), now)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = f.repo.CompleteConditional(context.Background(), appID, datatypes.JSON(payload), now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, won)

	app, err := f.repo.FindByID(context.Background(), appID)
	require.NoError(t, err)
	require.NotNil(t, app.CompletedAt)
	assert.Equal(t, now.Unix(), app.CompletedAt.Unix())
}

func TestCompleteValidatesTypedAnswers(t *testing.T) {
	f := newFixture(t)

	appType, err := f.types.Create(context.Background(), f.orgID, typedomain.CreateTypeRequest{
		Title: "Walk-in interview",
		Questions: []typedomain.Question{
			{ID: "motivation", Label: "Why us?", Type: typedomain.QuestionTypeTextarea, Required: true},
		},
	})
	require.NoError(t, err)

	result, err := f.svc.CreateFromScan(context.Background(), domain.ScanRequest{
		DeviceID:          f.deviceID,
		DeviceOrgID:       f.orgID,
		ReaderID:          f.deviceID.String(),
		CardUUID:          f.cardUUID,
		ApplicationTypeID: appType.ID.String(),
	})
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), domain.CompleteRequest{
		ApplicationID: result.ApplicationID,
		RawToken:      result.PublicToken,
		Answers:       map[string]string{},
	})
	assert.ErrorIs(t, err, typedomain.ErrInvalidAnswers)

	view, err := f.svc.Complete(context.Background(), domain.CompleteRequest{
		ApplicationID: result.ApplicationID,
		RawToken:      result.PublicToken,
		Answers:       map[string]string{"motivation": "great coffee"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, view.Status)
}

func TestCloseApplication(t *testing.T) {
	f := newFixture(t)
	result := f.scan(t)
	appID, err := snowflake.ParseString(result.ApplicationID)
	require.NoError(t, err)

	// Closing for the wrong org behaves like a missing application.
	err = f.svc.Close(context.Background(), f.node.Generate(), appID)
	assert.ErrorIs(t, err, domain.ErrApplicationNotFound)

	require.NoError(t, f.svc.Close(context.Background(), f.orgID, appID))
	// Closing twice is a no-op.
	require.NoError(t, f.svc.Close(context.Background(), f.orgID, appID))

	_, err = f.svc.Complete(context.Background(), domain.CompleteRequest{
		ApplicationID: result.ApplicationID,
		RawToken:      result.PublicToken,
	})
	assert.ErrorIs(t, err, domain.ErrApplicationClosed)
}

func TestListByOrgDerivedExpiry(t *testing.T) {
	f := newFixture(t)
	fresh := f.scan(t)
	stale := f.scan(t)

	staleID, err := snowflake.ParseString(stale.ApplicationID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&domain.Application{}).
		Where("id = ?", staleID).
		Update("token_expires_at", time.Now().Add(-time.Hour)).Error)

	views, err := f.svc.ListByOrg(context.Background(), f.orgID, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)

	byID := map[string]string{}
	for _, v := range views {
		byID[v.ID] = v.Status
	}
	assert.Equal(t, domain.StatusAwaitingUser, byID[fresh.ApplicationID])
	// Stored status is untouched; the view reports the derived state.
	assert.Equal(t, domain.StatusExpired, byID[stale.ApplicationID])

	app, err := f.repo.FindByID(context.Background(), staleID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingUser, app.Status)
}
