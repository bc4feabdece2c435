package bulk

import (
	"strings"
	"time"

	"github.com/erp/interchange/internal/domain/shared"
)

const maxTemplateNameLength = 100

// MappingTemplate is a named, reusable column mapping
type MappingTemplate struct {
	shared.BaseEntity
	Name    string       `gorm:"type:varchar(100);not null;uniqueIndex:idx_mapping_templates_name"`
	Mapping FieldMapping `gorm:"type:text;not null"`
}

// TableName returns the table name for GORM
func (MappingTemplate) TableName() string {
	return "mapping_templates"
}

// NewMappingTemplate validates and creates a template
func NewMappingTemplate(name string, mapping FieldMapping, now time.Time) (*MappingTemplate, error) {
	t := &MappingTemplate{BaseEntity: shared.NewBaseEntityAt(now)}
	if err := t.Update(name, mapping, now); err != nil {
		return nil, err
	}
	return t, nil
}

// Update replaces the name and mapping after validating both
func (t *MappingTemplate) Update(name string, mapping FieldMapping, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxTemplateNameLength {
		return ErrInvalidName
	}
	if err := mapping.Validate(); err != nil {
		return err
	}
	t.Name = name
	t.Mapping = mapping
	t.Touch(now)
	return nil
}
