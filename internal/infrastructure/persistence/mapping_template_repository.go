package persistence

import (
	"context"
	"errors"

	"github.com/erp/interchange/internal/domain/bulk"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMappingTemplateRepository implements bulk.MappingTemplateRepository using GORM
type GormMappingTemplateRepository struct {
	db *gorm.DB
}

// NewGormMappingTemplateRepository creates a new GormMappingTemplateRepository
func NewGormMappingTemplateRepository(db *gorm.DB) *GormMappingTemplateRepository {
	return &GormMappingTemplateRepository{db: db}
}

// FindByID finds a template by id
func (r *GormMappingTemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.MappingTemplate, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByName finds a template by its exact name
func (r *GormMappingTemplateRepository) FindByName(ctx context.Context, name string) (*bulk.MappingTemplate, error) {
	return r.findOne(ctx, "name = ?", name)
}

func (r *GormMappingTemplateRepository) findOne(ctx context.Context, cond string, arg any) (*bulk.MappingTemplate, error) {
	var t bulk.MappingTemplate
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bulk.ErrTemplateNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindAll returns every template ordered by name
func (r *GormMappingTemplateRepository) FindAll(ctx context.Context) ([]bulk.MappingTemplate, error) {
	var templates []bulk.MappingTemplate
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// Create inserts a new template
func (r *GormMappingTemplateRepository) Create(ctx context.Context, template *bulk.MappingTemplate) error {
	if err := r.db.WithContext(ctx).Create(template).Error; err != nil {
		if isDuplicateKey(err) {
			return bulk.ErrDuplicateName
		}
		return err
	}
	return nil
}

// Update rewrites name and mapping of an existing template
func (r *GormMappingTemplateRepository) Update(ctx context.Context, template *bulk.MappingTemplate) error {
	result := r.db.WithContext(ctx).
		Model(&bulk.MappingTemplate{}).
		Where("id = ?", template.ID).
		Select("name", "mapping", "updated_at").
		Updates(template)
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return bulk.ErrDuplicateName
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bulk.ErrTemplateNotFound
	}
	return nil
}

// Delete removes a template
func (r *GormMappingTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&bulk.MappingTemplate{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bulk.ErrTemplateNotFound
	}
	return nil
}

var _ bulk.MappingTemplateRepository = (*GormMappingTemplateRepository)(nil)
