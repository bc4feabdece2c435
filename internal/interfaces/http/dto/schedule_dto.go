package dto

import (
	"time"

	"github.com/erp/interchange/internal/domain/export"
	"github.com/google/uuid"
)

// DestinationRequest selects where an export is delivered
type DestinationRequest struct {
	Kind   string `json:"kind"`
	Config struct {
		Recipients []string `json:"recipients"`
		Subject    string   `json:"subject"`
		Bucket     string   `json:"bucket"`
		Prefix     string   `json:"prefix"`
	} `json:"config"`
}

// RetryRequest configures automatic retries
type RetryRequest struct {
	Enabled        bool `json:"enabled"`
	MaxAttempts    int  `json:"maxAttempts"`
	BackoffSeconds int  `json:"backoffSeconds"`
}

// FilterRequest narrows the exported catalog snapshot
type FilterRequest struct {
	Category     string `json:"category" binding:"max=100"`
	NameContains string `json:"nameContains" binding:"max=255"`
}

// ScheduleRequest creates or replaces an export schedule
type ScheduleRequest struct {
	Name        string             `json:"name" binding:"required,max=100"`
	Cron        string             `json:"cron" binding:"required"`
	Destination DestinationRequest `json:"destination"`
	Retry       RetryRequest       `json:"retry"`
	Filter      *FilterRequest     `json:"filter"`
	Enabled     *bool              `json:"enabled"`
}

// ToParams converts the request into domain parameters. Schedules are
// enabled unless the request says otherwise.
func (r ScheduleRequest) ToParams() export.ScheduleParams {
	p := export.ScheduleParams{
		Name: r.Name,
		Cron: r.Cron,
		Destination: export.Destination{
			Kind: export.DestinationKind(r.Destination.Kind),
			Config: export.DestinationConfig{
				Recipients: r.Destination.Config.Recipients,
				Subject:    r.Destination.Config.Subject,
				Bucket:     r.Destination.Config.Bucket,
				Prefix:     r.Destination.Config.Prefix,
			},
		},
		Retry: export.RetryPolicy{
			Enabled:        r.Retry.Enabled,
			MaxAttempts:    r.Retry.MaxAttempts,
			BackoffSeconds: r.Retry.BackoffSeconds,
		},
		Enabled: true,
	}
	if r.Filter != nil {
		p.Filter = export.Filter{Category: r.Filter.Category, NameContains: r.Filter.NameContains}
	}
	if r.Enabled != nil {
		p.Enabled = *r.Enabled
	}
	return p
}

// ScheduleResponse is a stored export schedule
type ScheduleResponse struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Cron        string             `json:"cron"`
	Destination export.Destination `json:"destination"`
	Retry       export.RetryPolicy `json:"retry"`
	Filter      export.Filter      `json:"filter"`
	Enabled     bool               `json:"enabled"`
	LastRunAt   *time.Time         `json:"lastRunAt"`
	NextRunAt   *time.Time         `json:"nextRunAt"`
	TimestampResponse
}

// NewScheduleResponse converts a domain schedule
func NewScheduleResponse(s *export.ExportSchedule) ScheduleResponse {
	return ScheduleResponse{
		ID:          s.ID,
		Name:        s.Name,
		Cron:        s.Cron,
		Destination: s.Destination,
		Retry:       s.Retry,
		Filter:      s.Filter,
		Enabled:     s.Enabled,
		LastRunAt:   s.LastRunAt,
		NextRunAt:   s.NextRunAt,
		TimestampResponse: TimestampResponse{
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		},
	}
}

// NewScheduleListResponse converts a list of schedules
func NewScheduleListResponse(schedules []export.ExportSchedule) []ScheduleResponse {
	out := make([]ScheduleResponse, len(schedules))
	for i := range schedules {
		out[i] = NewScheduleResponse(&schedules[i])
	}
	return out
}

// RunResponse is one export run
type RunResponse struct {
	ID           uuid.UUID  `json:"id"`
	ScheduleID   uuid.UUID  `json:"scheduleId"`
	FiringID     uuid.UUID  `json:"firingId"`
	Attempt      int        `json:"attempt"`
	Trigger      string     `json:"trigger"`
	Status       string     `json:"status"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	Error        string     `json:"error,omitempty"`
	RowCount     int        `json:"rowCount"`
	Location     string     `json:"location,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewRunResponse converts a domain run
func NewRunResponse(r *export.ExportRun) RunResponse {
	return RunResponse{
		ID:           r.ID,
		ScheduleID:   r.ScheduleID,
		FiringID:     r.FiringID,
		Attempt:      r.Attempt,
		Trigger:      string(r.Trigger),
		Status:       string(r.Status),
		ScheduledFor: r.ScheduledFor,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Error:        r.ErrorMessage,
		RowCount:     r.RowCount,
		Location:     r.Location,
		CreatedAt:    r.CreatedAt,
	}
}

// NewRunListResponse converts a list of runs, preserving order
func NewRunListResponse(runs []export.ExportRun) []RunResponse {
	out := make([]RunResponse, len(runs))
	for i := range runs {
		out[i] = NewRunResponse(&runs[i])
	}
	return out
}
