package importapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/interchange/internal/domain/bulk"
	"github.com/google/uuid"
)

// MappingRef selects the mapping for an import: an inline JSON object, a
// template reference, or neither for the identity mapping
type MappingRef struct {
	// Inline is either a JSON object of column to field or a template
	// reference (id or name)
	Inline string
	// TemplateID names a stored template explicitly
	TemplateID string
}

// IsZero reports whether no mapping was supplied
func (r MappingRef) IsZero() bool {
	return strings.TrimSpace(r.Inline) == "" && strings.TrimSpace(r.TemplateID) == ""
}

// MappingResolver turns a MappingRef into a validated mapping
type MappingResolver struct {
	templates bulk.MappingTemplateRepository
}

// NewMappingResolver creates a resolver backed by the template store
func NewMappingResolver(templates bulk.MappingTemplateRepository) *MappingResolver {
	return &MappingResolver{templates: templates}
}

// Resolve returns nil for an empty reference so the caller falls back to
// the identity mapping
func (r *MappingResolver) Resolve(ctx context.Context, ref MappingRef) (bulk.FieldMapping, error) {
	inline := strings.TrimSpace(ref.Inline)
	templateRef := strings.TrimSpace(ref.TemplateID)

	switch {
	case strings.HasPrefix(inline, "{"):
		return bulk.ParseFieldMapping([]byte(inline))
	case inline != "":
		return r.lookup(ctx, inline)
	case templateRef != "":
		return r.lookup(ctx, templateRef)
	}
	return nil, nil
}

// lookup accepts a template id or, failing that, a template name
func (r *MappingResolver) lookup(ctx context.Context, ref string) (bulk.FieldMapping, error) {
	if id, err := uuid.Parse(ref); err == nil {
		t, err := r.templates.FindByID(ctx, id)
		if err == nil {
			return t.Mapping, nil
		}
		if !errors.Is(err, bulk.ErrTemplateNotFound) {
			return nil, fmt.Errorf("failed to load mapping template: %w", err)
		}
	}

	t, err := r.templates.FindByName(ctx, ref)
	if err != nil {
		if errors.Is(err, bulk.ErrTemplateNotFound) {
			return nil, bulk.ErrUnknownTemplate.WithMessage(fmt.Sprintf("mapping template %q does not exist", ref))
		}
		return nil, fmt.Errorf("failed to load mapping template: %w", err)
	}
	return t.Mapping, nil
}
