package server

import (
	"net/http"
	"strings"
	"time"

	analyticsdomain "github.com/cardlinkhq/cardlink/internal/analytics/domain"
	"github.com/gin-gonic/gin"
)

// GetAnalytics serves the dashboard summary: totals, status breakdown,
// completion rate, and scans per day.
func (s *Server) GetAnalytics(c *gin.Context) {
	orgID, ok := s.orgIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req analyticsdomain.AggregateRequest
	if raw := strings.TrimSpace(c.Query("start_date")); raw != "" {
		start, err := parseDateParam(raw)
		if err != nil {
			AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start date"))
			return
		}
		req.StartDate = &start
	}
	if raw := strings.TrimSpace(c.Query("end_date")); raw != "" {
		end, err := parseDateParam(raw)
		if err != nil {
			AbortWithError(c, newValidationError("end_date", "invalid_end_date", "invalid end date"))
			return
		}
		req.EndDate = &end
	}

	summary, err := s.analyticsSvc.Aggregate(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"analytics": summary})
}

func parseDateParam(raw string) (time.Time, error) {
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		return parsed.UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}
