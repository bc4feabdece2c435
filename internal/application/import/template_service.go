package importapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/interchange/internal/domain/bulk"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TemplateService manages named mapping templates
type TemplateService struct {
	repo   bulk.MappingTemplateRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(repo bulk.MappingTemplateRepository, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// List returns every template ordered by name
func (s *TemplateService) List(ctx context.Context) ([]bulk.MappingTemplate, error) {
	return s.repo.FindAll(ctx)
}

// Get returns one template
func (s *TemplateService) Get(ctx context.Context, id uuid.UUID) (*bulk.MappingTemplate, error) {
	return s.repo.FindByID(ctx, id)
}

// Create stores a new template. The mapping is validated before anything
// is written.
func (s *TemplateService) Create(ctx context.Context, name string, mapping bulk.FieldMapping) (*bulk.MappingTemplate, error) {
	t, err := bulk.NewMappingTemplate(name, mapping, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, t.Name, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("Mapping template created", zap.String("template_id", t.ID.String()), zap.String("name", t.Name))
	return t, nil
}

// Update replaces the name and mapping of an existing template
func (s *TemplateService) Update(ctx context.Context, id uuid.UUID, name string, mapping bulk.FieldMapping) (*bulk.MappingTemplate, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.Update(name, mapping, s.now()); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, t.Name, t.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a template
func (s *TemplateService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Mapping template deleted", zap.String("template_id", id.String()))
	return nil
}

// ensureNameFree fails when a template other than self holds name. The
// unique index still catches a concurrent create that slips past.
func (s *TemplateService) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.repo.FindByName(ctx, name)
	switch {
	case errors.Is(err, bulk.ErrTemplateNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check template name: %w", err)
	case existing.ID != self:
		return bulk.ErrDuplicateName.WithMessage(fmt.Sprintf("a mapping template named %q already exists", name))
	}
	return nil
}
