package export

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScheduleRepository defines the interface for schedule persistence
type ScheduleRepository interface {
	// FindByID returns ErrScheduleNotFound when the id is unknown
	FindByID(ctx context.Context, id uuid.UUID) (*ExportSchedule, error)

	// FindAll returns every schedule ordered by name
	FindAll(ctx context.Context) ([]ExportSchedule, error)

	// FindEnabled returns the schedules the cron loop should evaluate
	FindEnabled(ctx context.Context) ([]ExportSchedule, error)

	// Create inserts a new schedule. A unique-name violation is reported
	// as ErrDuplicateName.
	Create(ctx context.Context, schedule *ExportSchedule) error

	// Update writes the admin-edited settings of an existing schedule and
	// leaves last_run_at to UpdateRunTimes. A missing row is
	// ErrScheduleNotFound, never an insert.
	Update(ctx context.Context, schedule *ExportSchedule) error

	// UpdateRunTimes persists last/next run bookkeeping without touching
	// admin-edited settings
	UpdateRunTimes(ctx context.Context, id uuid.UUID, lastRunAt, nextRunAt *time.Time) error

	// Delete removes a schedule. Its runs are retained.
	Delete(ctx context.Context, id uuid.UUID) error
}

// RunRepository is the append-only run ledger
type RunRepository interface {
	// Create appends a new run
	Create(ctx context.Context, run *ExportRun) error

	// UpdateStatus persists the status-transition columns of a run
	UpdateStatus(ctx context.Context, run *ExportRun) error

	// FindByID returns ErrRunNotFound when the id is unknown
	FindByID(ctx context.Context, id uuid.UUID) (*ExportRun, error)

	// FindBySchedule returns runs newest first
	FindBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]ExportRun, error)

	// FindByFiring returns the attempts of one firing ordered by attempt
	FindByFiring(ctx context.Context, firingID uuid.UUID) ([]ExportRun, error)

	// FindByStatus returns runs in the given status, oldest first
	FindByStatus(ctx context.Context, status RunStatus) ([]ExportRun, error)
}
