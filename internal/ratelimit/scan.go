package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cardlinkhq/cardlink/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyScanDevice = "scan:device:%s"

// ScanLimiter throttles application-creating scans per reader device.
// A nil limiter is valid and allows everything, so callers never need
// to branch on whether rate limiting is configured.
type ScanLimiter struct {
	enabled bool

	bucket *TokenBucket

	scanRate  float64
	scanBurst int
}

func NewScanLimiter(cfg config.Config) (*ScanLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.ScanRate <= 0 || limitCfg.ScanBurst <= 0 {
		return nil, errors.New("scan rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &ScanLimiter{
		enabled:   true,
		bucket:    NewTokenBucket(client),
		scanRate:  limitCfg.ScanRate,
		scanBurst: limitCfg.ScanBurst,
	}, nil
}

func (l *ScanLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *ScanLimiter) AllowDevice(ctx context.Context, deviceID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyScanDevice, strings.TrimSpace(deviceID)), l.scanRate, l.scanBurst)
}
