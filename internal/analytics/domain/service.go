package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Record appends one event. Failures here must never abort the
	// operation that produced the event.
	Record(ctx context.Context, req RecordEventRequest) error
	Aggregate(ctx context.Context, orgID snowflake.ID, req AggregateRequest) (*Summary, error)
}

type RecordEventRequest struct {
	OrgID         snowflake.ID
	UserID        *snowflake.ID
	ApplicationID *snowflake.ID
	EventType     string
	Metadata      map[string]any
}

type AggregateRequest struct {
	StartDate *time.Time
	EndDate   *time.Time
}

// Summary is the aggregate view served to organization dashboards.
type Summary struct {
	TotalApplications int64            `json:"total_applications"`
	StatusBreakdown   map[string]int64 `json:"status_breakdown"`
	CompletionRate    float64          `json:"completion_rate"`
	ScansByDay        map[string]int64 `json:"scans_by_day"`
}

var (
	ErrInvalidOrg       = errors.New("invalid_org")
	ErrInvalidEventType = errors.New("invalid_event_type")
)
