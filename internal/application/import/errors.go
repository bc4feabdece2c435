package importapp

import "github.com/erp/interchange/internal/domain/shared"

// Fatal import errors. Row-level problems never surface as errors; they are
// reported per line in the preview or commit result.
var (
	ErrIO                 = shared.NewDomainError("IO_ERROR", "The uploaded file could not be read")
	ErrFormat             = shared.NewDomainError("FORMAT_ERROR", "The uploaded file is not a well-formed CSV document")
	ErrStorageUnavailable = shared.ErrStorageUnavailable
)
