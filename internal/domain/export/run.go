package export

import (
	"fmt"
	"time"

	"github.com/erp/interchange/internal/domain/shared"
	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of one delivery attempt
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// IsValid checks if the status is known
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusSucceeded, RunStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// RunTrigger records what started a run
type RunTrigger string

const (
	TriggerCron   RunTrigger = "cron"
	TriggerManual RunTrigger = "manual"
	TriggerRetry  RunTrigger = "retry"
)

// ExportRun is one attempt at executing a schedule. Attempts belonging to
// the same firing share a FiringID; the attempt counter restarts at 1 for
// every new firing.
type ExportRun struct {
	shared.BaseEntity
	ScheduleID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_export_runs_schedule"`
	FiringID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Attempt      int        `gorm:"not null"`
	Trigger      RunTrigger `gorm:"type:varchar(20);not null"`
	Status       RunStatus  `gorm:"type:varchar(20);not null;index"`
	ScheduledFor *time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
	ErrorMessage string `gorm:"type:text"`
	RowCount     int    `gorm:"not null;default:0"`
	Location     string `gorm:"type:varchar(1024)"`
}

// TableName returns the table name for GORM
func (ExportRun) TableName() string {
	return "export_runs"
}

// NewFiring starts attempt 1 of a new firing in the running state
func NewFiring(scheduleID uuid.UUID, trigger RunTrigger, now time.Time) *ExportRun {
	return &ExportRun{
		BaseEntity: shared.NewBaseEntityAt(now),
		ScheduleID: scheduleID,
		FiringID:   uuid.New(),
		Attempt:    1,
		Trigger:    trigger,
		Status:     RunStatusRunning,
		StartedAt:  &now,
	}
}

// NextAttempt creates the follow-up attempt of a failed run, continuing the
// attempt counter within the same firing. With a zero delay the attempt
// starts immediately; otherwise it waits as pending until due.
func (r *ExportRun) NextAttempt(now time.Time, delay time.Duration) (*ExportRun, error) {
	if delay > 0 {
		return r.QueueAttempt(now, now.Add(delay))
	}
	next, err := r.followUp(now)
	if err != nil {
		return nil, err
	}
	next.Status = RunStatusRunning
	next.StartedAt = &now
	return next, nil
}

// QueueAttempt creates the follow-up attempt as pending until due, even
// when due is not in the future
func (r *ExportRun) QueueAttempt(now, due time.Time) (*ExportRun, error) {
	next, err := r.followUp(now)
	if err != nil {
		return nil, err
	}
	next.Status = RunStatusPending
	next.ScheduledFor = &due
	return next, nil
}

func (r *ExportRun) followUp(now time.Time) (*ExportRun, error) {
	if r.Status != RunStatusFailed {
		return nil, ErrRunNotRetryable.WithMessage(
			fmt.Sprintf("run %s is %s; only failed runs can be retried", r.ID, r.Status))
	}
	return &ExportRun{
		BaseEntity: shared.NewBaseEntityAt(now),
		ScheduleID: r.ScheduleID,
		FiringID:   r.FiringID,
		Attempt:    r.Attempt + 1,
		Trigger:    TriggerRetry,
	}, nil
}

// Start moves a pending run to running
func (r *ExportRun) Start(now time.Time) error {
	if r.Status != RunStatusPending {
		return r.transitionError(RunStatusRunning)
	}
	r.Status = RunStatusRunning
	r.StartedAt = &now
	r.Touch(now)
	return nil
}

// Succeed finishes a running run
func (r *ExportRun) Succeed(now time.Time, rows int, location string) error {
	if r.Status != RunStatusRunning {
		return r.transitionError(RunStatusSucceeded)
	}
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
	r.RowCount = rows
	r.Location = location
	r.ErrorMessage = ""
	r.Touch(now)
	return nil
}

// Fail finishes a running or pending run with an error message
func (r *ExportRun) Fail(now time.Time, message string) error {
	if r.Status.IsTerminal() {
		return r.transitionError(RunStatusFailed)
	}
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.ErrorMessage = message
	r.Touch(now)
	return nil
}

// Reschedule pushes a pending run's due time forward
func (r *ExportRun) Reschedule(due time.Time) error {
	if r.Status != RunStatusPending {
		return r.transitionError(RunStatusPending)
	}
	r.ScheduledFor = &due
	return nil
}

func (r *ExportRun) transitionError(to RunStatus) error {
	return ErrInvalidRunTransition.WithMessage(
		fmt.Sprintf("run %s cannot move from %s to %s", r.ID, r.Status, to))
}
