package bulk

// Row-level validation codes reported for imported rows
const (
	CodeMissingName          = "missing_name"
	CodeInvalidPrice         = "invalid_price"
	CodeInvalidStock         = "invalid_stock"
	CodeMissingRequiredField = "missing_required_field"
	CodeFieldTooLong         = "field_too_long"
	CodeMalformedRow         = "malformed_row"
)

// RowIssue is one validation problem found on a row
type RowIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ImportRowResult is the fate of a single data row. Line is 1-based with
// the header excluded.
type ImportRowResult struct {
	Line       int               `json:"line"`
	RawData    map[string]string `json:"rawData"`
	MappedData map[string]string `json:"productData"`
	Errors     []RowIssue        `json:"errors"`
}

// Valid reports whether the row carries no issues
func (r ImportRowResult) Valid() bool {
	return len(r.Errors) == 0
}

// LineErrors groups the issues of one line
type LineErrors struct {
	Line   int        `json:"line"`
	Errors []RowIssue `json:"errors"`
}

// ImportSummary is the outcome of a commit
type ImportSummary struct {
	Created int          `json:"created"`
	Updated int          `json:"updated"`
	Skipped int          `json:"skipped"`
	Errors  []LineErrors `json:"errors"`
}

// PreviewResult is the outcome of a dry run
type PreviewResult struct {
	Rows      []ImportRowResult `json:"preview"`
	Errors    []LineErrors      `json:"errors"`
	TotalRows int               `json:"total_rows"`
	ValidRows int               `json:"valid_rows"`
	ErrorRows int               `json:"error_rows"`
	Truncated bool              `json:"truncated"`
	Warnings  []string          `json:"warnings,omitempty"`
}
