package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/cardlinkhq/cardlink/internal/auth/domain"
	"github.com/cardlinkhq/cardlink/internal/clock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newSchedulerFixture(t *testing.T) (*Scheduler, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&authdomain.Session{}))

	fake := clock.NewFakeClock(time.Now().UTC())
	sched, err := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fake,
		Config: Config{
			SessionRetention: 24 * time.Hour,
			BatchSize:        2,
		},
	})
	require.NoError(t, err)
	return sched, db, fake
}

func TestPurgeSessionsJob(t *testing.T) {
	sched, db, fake := newSchedulerFixture(t)
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	now := fake.Now()
	revokedAt := now.Add(-48 * time.Hour)
	sessions := []authdomain.Session{
		{ID: node.Generate(), AccountID: 1, SessionTokenHash: "stale-expired-1", ExpiresAt: now.Add(-72 * time.Hour)},
		{ID: node.Generate(), AccountID: 1, SessionTokenHash: "stale-expired-2", ExpiresAt: now.Add(-49 * time.Hour)},
		{ID: node.Generate(), AccountID: 1, SessionTokenHash: "stale-revoked", ExpiresAt: now.Add(24 * time.Hour), RevokedAt: &revokedAt},
		{ID: node.Generate(), AccountID: 2, SessionTokenHash: "recently-expired", ExpiresAt: now.Add(-time.Hour)},
		{ID: node.Generate(), AccountID: 2, SessionTokenHash: "live", ExpiresAt: now.Add(30 * 24 * time.Hour)},
	}
	for i := range sessions {
		sessions[i].CreatedAt = now.Add(-96 * time.Hour)
		sessions[i].LastSeenAt = now.Add(-96 * time.Hour)
		require.NoError(t, db.Create(&sessions[i]).Error)
	}

	require.NoError(t, sched.RunOnce(context.Background()))

	var remaining []authdomain.Session
	require.NoError(t, db.Where("account_id IN ?", []int64{1, 2}).Find(&remaining).Error)
	require.Len(t, remaining, 2)
	hashes := map[string]bool{}
	for _, session := range remaining {
		hashes[session.SessionTokenHash] = true
	}
	require.True(t, hashes["live"])
	require.True(t, hashes["recently-expired"])

	// Advancing past the retention window catches the rest.
	fake.Advance(48 * time.Hour)
	require.NoError(t, sched.RunOnce(context.Background()))

	remaining = nil
	require.NoError(t, db.Where("account_id IN ?", []int64{1, 2}).Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, "live", remaining[0].SessionTokenHash)
}
