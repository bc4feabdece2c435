package export

import "github.com/erp/interchange/internal/domain/shared"

// Schedule configuration errors are rejected at creation time; run errors
// surface from the executor and run history.
var (
	ErrInvalidCron          = shared.NewDomainError("INVALID_CRON", "Cron expression must have five valid fields")
	ErrInvalidDestination   = shared.NewDomainError("INVALID_DESTINATION", "Invalid export destination")
	ErrInvalidRetryPolicy   = shared.NewDomainError("INVALID_RETRY_POLICY", "Invalid retry policy")
	ErrInvalidScheduleName  = shared.NewDomainError("INVALID_INPUT", "Schedule name is required and cannot exceed 100 characters")
	ErrDuplicateName        = shared.NewDomainError("DUPLICATE_NAME", "An export schedule with this name already exists")
	ErrScheduleNotFound     = shared.NewDomainError("NOT_FOUND", "Export schedule not found")
	ErrRunNotFound          = shared.NewDomainError("NOT_FOUND", "Export run not found")
	ErrAlreadyRunning       = shared.NewDomainError("ALREADY_RUNNING", "Export schedule is already running")
	ErrRunNotRetryable      = shared.NewDomainError("INVALID_STATE", "Only failed runs can be retried")
	ErrInvalidRunTransition = shared.NewDomainError("INVALID_STATE", "Invalid export run status transition")
)
