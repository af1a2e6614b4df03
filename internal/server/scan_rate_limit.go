package server

import (
	"context"
	"strconv"
	"strings"

	"github.com/cardlinkhq/cardlink/internal/observability/logger"
	obsmetrics "github.com/cardlinkhq/cardlink/internal/observability/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const rateLimitReasonDeviceRate = "device-rate"

// ScanRateLimit throttles scan ingestion per reader device. It runs
// after DeviceAuthRequired so unauthenticated traffic never reaches
// the limiter.
func (s *Server) ScanRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.scanLimiter == nil || !s.scanLimiter.Enabled() {
			c.Next()
			return
		}

		device, ok := s.deviceFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()

		result, err := s.scanLimiter.AllowDevice(ctx, device.ID.String())
		if err != nil {
			logger.FromContext(ctx).Warn("scan rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			logger.FromContext(ctx).Warn("scan rate limit exceeded",
				zap.String("reason", rateLimitReasonDeviceRate),
				zap.String("endpoint", endpoint),
				zap.String("device_id", device.ID.String()),
			)
			recordRateLimitDenied(ctx, endpoint, device.OrgID.String(), rateLimitReasonDeviceRate, s.obsMetrics)

			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-Rate-Limited-Reason", rateLimitReasonDeviceRate)
			AbortWithError(c, ErrRateLimited)
			return
		}

		recordRateLimitAllowed(ctx, endpoint, device.OrgID.String(), s.obsMetrics)
		c.Next()
	}
}

func recordRateLimitAllowed(ctx context.Context, endpoint, orgID string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, orgID, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, orgID, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, orgID, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
