// Package scheduler runs background housekeeping that keeps the
// database from accumulating dead rows.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/cardlinkhq/cardlink/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Config Config `optional:"true"`
}

type Scheduler struct {
	db    *gorm.DB
	log   *zap.Logger
	cfg   Config
	clock clock.Clock
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:    p.DB,
		log:   p.Log.Named("scheduler"),
		cfg:   p.Config.withDefaults(),
		clock: p.Clock,
	}, nil
}

// RunForever ticks until the context is cancelled. Job failures are
// logged and retried on the next tick.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Warn("housekeeping run failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, "sessions.purge", s.PurgeSessionsJob)
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	err := fn(ctx)
	log := s.log.With(
		zap.String("job", name),
		zap.Duration("duration", time.Since(start)),
	)
	if err != nil {
		log.Warn("job failed", zap.Error(err))
		return err
	}
	log.Debug("job finished")
	return nil
}

// PurgeSessionsJob deletes sessions that expired or were revoked longer
// ago than the retention window. Rows inside the window are kept so
// recent logouts remain visible for support.
func (s *Scheduler) PurgeSessionsJob(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.cfg.SessionRetention)

	for {
		result := s.db.WithContext(ctx).Exec(
			`DELETE FROM sessions
			 WHERE id IN (
			     SELECT id FROM sessions
			     WHERE expires_at <= ?
			        OR (revoked_at IS NOT NULL AND revoked_at <= ?)
			     LIMIT ?
			 )`,
			cutoff,
			cutoff,
			s.cfg.BatchSize,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			s.log.Info("purged stale sessions", zap.Int64("count", result.RowsAffected))
		}
		if result.RowsAffected < int64(s.cfg.BatchSize) {
			return nil
		}
	}
}
