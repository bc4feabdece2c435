package csvimport

import (
	"github.com/erp/interchange/internal/domain/bulk"
)

// FieldMapper projects raw rows onto catalog fields
type FieldMapper struct {
	mapping bulk.FieldMapping
}

// NewFieldMapper creates a mapper for an already validated mapping
func NewFieldMapper(mapping bulk.FieldMapping) *FieldMapper {
	return &FieldMapper{mapping: mapping}
}

// Map copies raw[source] into target for every mapping entry. Columns that
// the mapping does not name are dropped and targets whose source column is
// missing from the row stay absent.
func (m *FieldMapper) Map(raw map[string]string) map[string]string {
	mapped := make(map[string]string, len(m.mapping))
	for _, e := range m.mapping {
		if v, ok := raw[e.Source]; ok {
			mapped[string(e.Target)] = v
		}
	}
	return mapped
}

// MissingSources lists mapping source columns that the header lacks
func (m *FieldMapper) MissingSources(header []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, e := range m.mapping {
		if !have[e.Source] {
			missing = append(missing, e.Source)
		}
	}
	return missing
}

// Mapping returns the underlying mapping
func (m *FieldMapper) Mapping() bulk.FieldMapping {
	return m.mapping
}
