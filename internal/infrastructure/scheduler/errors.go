package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when submitting to a stopped pool
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrLockNotHeld is returned when releasing a lock this process does not own
	ErrLockNotHeld = errors.New("lock is not held")
)
