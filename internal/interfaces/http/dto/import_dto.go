package dto

import "github.com/erp/interchange/internal/domain/bulk"

// ImportForm is the multipart form shared by preview and commit. The file
// part is read separately.
type ImportForm struct {
	Mapping    string `form:"mapping"`
	TemplateID string `form:"template_id"`
}

// PreviewResponse is the dry-run report. It is not wrapped in the standard
// envelope so import clients can read the counters at the top level.
type PreviewResponse struct {
	Success   bool                   `json:"success"`
	Preview   []bulk.ImportRowResult `json:"preview"`
	Errors    []bulk.LineErrors      `json:"errors"`
	TotalRows int                    `json:"total_rows"`
	ValidRows int                    `json:"valid_rows"`
	ErrorRows int                    `json:"error_rows"`
	Truncated bool                   `json:"truncated"`
	Warnings  []string               `json:"warnings,omitempty"`
}

// NewPreviewResponse converts a preview result, rendering absent lists as []
func NewPreviewResponse(r *bulk.PreviewResult) PreviewResponse {
	resp := PreviewResponse{
		Success:   true,
		Preview:   r.Rows,
		Errors:    r.Errors,
		TotalRows: r.TotalRows,
		ValidRows: r.ValidRows,
		ErrorRows: r.ErrorRows,
		Truncated: r.Truncated,
		Warnings:  r.Warnings,
	}
	if resp.Preview == nil {
		resp.Preview = []bulk.ImportRowResult{}
	}
	for i, row := range resp.Preview {
		if row.Errors == nil {
			resp.Preview[i].Errors = []bulk.RowIssue{}
		}
	}
	if resp.Errors == nil {
		resp.Errors = []bulk.LineErrors{}
	}
	return resp
}

// CommitResponse is the commit summary
type CommitResponse struct {
	Success bool              `json:"success"`
	Created int               `json:"created"`
	Updated int               `json:"updated"`
	Skipped int               `json:"skipped"`
	Errors  []bulk.LineErrors `json:"errors"`
}

// NewCommitResponse converts a commit summary
func NewCommitResponse(s *bulk.ImportSummary) CommitResponse {
	resp := CommitResponse{
		Success: true,
		Created: s.Created,
		Updated: s.Updated,
		Skipped: s.Skipped,
		Errors:  s.Errors,
	}
	if resp.Errors == nil {
		resp.Errors = []bulk.LineErrors{}
	}
	return resp
}

// ExportQuery filters an on-demand export
type ExportQuery struct {
	Category string `form:"category" binding:"max=100"`
	Query    string `form:"q" binding:"max=255"`
}
