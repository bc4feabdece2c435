package exportapp

import (
	"context"

	"github.com/erp/interchange/internal/domain/export"
	"github.com/google/uuid"
)

// RunRetrier re-enters the executor for a failed run
type RunRetrier interface {
	Retry(ctx context.Context, runID uuid.UUID) (*export.ExportRun, error)
}

// RunHistoryService exposes the run ledger
type RunHistoryService struct {
	runs      export.RunRepository
	schedules export.ScheduleRepository
	retrier   RunRetrier
}

// NewRunHistoryService creates a new RunHistoryService
func NewRunHistoryService(runs export.RunRepository, schedules export.ScheduleRepository, retrier RunRetrier) *RunHistoryService {
	return &RunHistoryService{runs: runs, schedules: schedules, retrier: retrier}
}

// ListRuns returns a schedule's runs newest first. Runs of a deleted
// schedule stay listable; an id that never had runs or a schedule is
// reported as not found.
func (s *RunHistoryService) ListRuns(ctx context.Context, scheduleID uuid.UUID) ([]export.ExportRun, error) {
	runs, err := s.runs.FindBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
			return nil, err
		}
		return []export.ExportRun{}, nil
	}
	return runs, nil
}

// GetRun returns one run
func (s *RunHistoryService) GetRun(ctx context.Context, runID uuid.UUID) (*export.ExportRun, error) {
	return s.runs.FindByID(ctx, runID)
}

// RetryRun starts the next attempt of a failed run. Runs in any other
// status, and failed runs a newer attempt of their firing already follows,
// are rejected with ErrRunNotRetryable.
func (s *RunHistoryService) RetryRun(ctx context.Context, runID uuid.UUID) (*export.ExportRun, error) {
	return s.retrier.Retry(ctx, runID)
}
