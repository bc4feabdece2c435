package bulk

import (
	"context"

	"github.com/google/uuid"
)

// MappingTemplateRepository defines the interface for template persistence
type MappingTemplateRepository interface {
	// FindByID returns ErrTemplateNotFound when the id is unknown
	FindByID(ctx context.Context, id uuid.UUID) (*MappingTemplate, error)

	// FindByName returns ErrTemplateNotFound when no template holds the name
	FindByName(ctx context.Context, name string) (*MappingTemplate, error)

	// FindAll returns every template ordered by name
	FindAll(ctx context.Context) ([]MappingTemplate, error)

	// Create inserts a new template. A unique-name violation is reported
	// as ErrDuplicateName.
	Create(ctx context.Context, template *MappingTemplate) error

	// Update rewrites name and mapping of an existing template. A missing
	// row is ErrTemplateNotFound.
	Update(ctx context.Context, template *MappingTemplate) error

	// Delete removes a template
	Delete(ctx context.Context, id uuid.UUID) error
}
