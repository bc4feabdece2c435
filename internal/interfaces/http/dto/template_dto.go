package dto

import (
	"github.com/erp/interchange/internal/domain/bulk"
	"github.com/google/uuid"
)

// TemplateRequest creates or replaces a mapping template
type TemplateRequest struct {
	Name    string            `json:"name" binding:"required,max=100"`
	Mapping bulk.FieldMapping `json:"mapping" binding:"required"`
}

// TemplateResponse is a stored mapping template
type TemplateResponse struct {
	ID      uuid.UUID         `json:"id"`
	Name    string            `json:"name"`
	Mapping bulk.FieldMapping `json:"mapping"`
	TimestampResponse
}

// NewTemplateResponse converts a domain template
func NewTemplateResponse(t *bulk.MappingTemplate) TemplateResponse {
	return TemplateResponse{
		ID:      t.ID,
		Name:    t.Name,
		Mapping: t.Mapping,
		TimestampResponse: TimestampResponse{
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		},
	}
}

// NewTemplateListResponse converts a list of templates
func NewTemplateListResponse(templates []bulk.MappingTemplate) []TemplateResponse {
	out := make([]TemplateResponse, len(templates))
	for i := range templates {
		out[i] = NewTemplateResponse(&templates[i])
	}
	return out
}
