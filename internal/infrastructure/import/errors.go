package csvimport

import "errors"

// Structural parse errors. Any of these aborts the whole import call;
// problems confined to one row are reported on the row instead.
var (
	// ErrUnreadable is returned when the input cannot be read
	ErrUnreadable = errors.New("CSV input could not be read")

	// ErrEmptyFile is returned when the CSV file is empty
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the file is not valid UTF-8
	ErrInvalidEncoding = errors.New("CSV file must be UTF-8 encoded")

	// ErrMissingHeader is returned when the CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")

	// ErrDuplicateHeader is returned when two header columns share a name
	ErrDuplicateHeader = errors.New("CSV header contains a duplicate column")

	// ErrTooManyRows is returned when the row limit is exceeded
	ErrTooManyRows = errors.New("CSV file exceeds the maximum number of rows")

	// ErrInvalidDialect is returned for an unusable delimiter/quote pair
	ErrInvalidDialect = errors.New("invalid CSV delimiter or quote character")
)

// IsFormatError reports whether err describes malformed CSV structure
// rather than an I/O failure
func IsFormatError(err error) bool {
	return errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrInvalidEncoding) ||
		errors.Is(err, ErrMissingHeader) ||
		errors.Is(err, ErrDuplicateHeader) ||
		errors.Is(err, ErrTooManyRows) ||
		errors.Is(err, ErrInvalidDialect)
}
