package bulk

import "github.com/erp/interchange/internal/domain/shared"

// Bulk interchange errors
var (
	ErrInvalidMapping   = shared.NewDomainError("INVALID_MAPPING", "Invalid field mapping")
	ErrUnknownTemplate  = shared.NewDomainError("UNKNOWN_TEMPLATE", "Mapping template does not exist")
	ErrTemplateNotFound = shared.NewDomainError("NOT_FOUND", "Mapping template not found")
	ErrDuplicateName    = shared.NewDomainError("DUPLICATE_NAME", "A mapping template with this name already exists")
	ErrInvalidName      = shared.NewDomainError("INVALID_INPUT", "Template name is required and cannot exceed 100 characters")
)
