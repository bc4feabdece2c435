package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeStorageUnavailable is used when the catalog store or an object store cannot be reached
	ErrCodeStorageUnavailable = "ERR_STORAGE_UNAVAILABLE"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
	// ErrCodeValidationLength is used when a field length is invalid
	ErrCodeValidationLength = "ERR_VALIDATION_LENGTH"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeDuplicateName is used when a template or schedule name is taken
	ErrCodeDuplicateName = "ERR_DUPLICATE_NAME"
	// ErrCodeUnknownTemplate is used when a mapping reference names no template
	ErrCodeUnknownTemplate = "ERR_UNKNOWN_TEMPLATE"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeAlreadyRunning is used when a schedule already has a run in flight
	ErrCodeAlreadyRunning = "ERR_ALREADY_RUNNING"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeFileTooLarge is used when an upload exceeds the size limit
	ErrCodeFileTooLarge = "ERR_FILE_TOO_LARGE"
)

// Import and export error codes
const (
	// ErrCodeFormat is used when an uploaded file is not parseable CSV
	ErrCodeFormat = "ERR_FORMAT"
	// ErrCodeIO is used when an uploaded file cannot be read
	ErrCodeIO = "ERR_IO"
	// ErrCodeInvalidMapping is used when a field mapping is malformed
	ErrCodeInvalidMapping = "ERR_INVALID_MAPPING"
	// ErrCodeInvalidCron is used when a cron expression does not parse
	ErrCodeInvalidCron = "ERR_INVALID_CRON"
	// ErrCodeInvalidDestination is used when an export destination is incomplete
	ErrCodeInvalidDestination = "ERR_INVALID_DESTINATION"
	// ErrCodeInvalidRetryPolicy is used when retry bounds are out of range
	ErrCodeInvalidRetryPolicy = "ERR_INVALID_RETRY_POLICY"
)

// Rate limiting error codes
const (
	// ErrCodeTooManyRequests is used when a client exceeds its request budget
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:            http.StatusInternalServerError,
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeStorageUnavailable: http.StatusServiceUnavailable,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeValidationLength:   http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeUnknownTemplate: http.StatusNotFound,
	ErrCodeAlreadyExists:   http.StatusConflict,
	ErrCodeConflict:        http.StatusConflict,
	ErrCodeDuplicateName:   http.StatusConflict,

	// Business rule errors
	ErrCodeInvalidState:   http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:   http.StatusUnprocessableEntity,
	ErrCodeAlreadyRunning: http.StatusConflict,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeFileTooLarge: http.StatusRequestEntityTooLarge,

	// Import and export errors -> 400 Bad Request
	ErrCodeFormat:             http.StatusBadRequest,
	ErrCodeIO:                 http.StatusBadRequest,
	ErrCodeInvalidMapping:     http.StatusBadRequest,
	ErrCodeInvalidCron:        http.StatusBadRequest,
	ErrCodeInvalidDestination: http.StatusBadRequest,
	ErrCodeInvalidRetryPolicy: http.StatusBadRequest,

	ErrCodeTooManyRequests: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the API codes above
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_NAME":         ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
	"STORAGE_UNAVAILABLE":  ErrCodeStorageUnavailable,
	"FORMAT_ERROR":         ErrCodeFormat,
	"IO_ERROR":             ErrCodeIO,
	"INVALID_MAPPING":      ErrCodeInvalidMapping,
	"UNKNOWN_TEMPLATE":     ErrCodeUnknownTemplate,
	"DUPLICATE_NAME":       ErrCodeDuplicateName,
	"INVALID_CRON":         ErrCodeInvalidCron,
	"INVALID_DESTINATION":  ErrCodeInvalidDestination,
	"INVALID_RETRY_POLICY": ErrCodeInvalidRetryPolicy,
	"ALREADY_RUNNING":      ErrCodeAlreadyRunning,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
