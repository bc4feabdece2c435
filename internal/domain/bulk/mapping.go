package bulk

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erp/interchange/internal/domain/catalog"
)

// MappingEntry copies one source column into one catalog field
type MappingEntry struct {
	Source string        `json:"source"`
	Target catalog.Field `json:"target"`
}

// FieldMapping is an ordered source-column to target-field mapping.
// On the wire it is a JSON object whose key order is preserved.
type FieldMapping []MappingEntry

// ParseFieldMapping decodes and validates a JSON object mapping
func ParseFieldMapping(raw []byte) (FieldMapping, error) {
	var m FieldMapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, ErrInvalidMapping.WithMessage("mapping must be a JSON object of column to field: " + err.Error())
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// IdentityMapping maps every header column that names a catalog field onto
// that field. Matching ignores case and surrounding whitespace.
func IdentityMapping(header []string) FieldMapping {
	m := FieldMapping{}
	seen := make(map[catalog.Field]bool)
	for _, col := range header {
		f := catalog.Field(strings.ToLower(strings.TrimSpace(col)))
		if f.IsValid() && !seen[f] {
			seen[f] = true
			m = append(m, MappingEntry{Source: col, Target: f})
		}
	}
	return m
}

// Validate rejects blank sources, unknown targets and targets used twice
func (m FieldMapping) Validate() error {
	if len(m) == 0 {
		return ErrInvalidMapping.WithMessage("mapping must contain at least one entry")
	}
	sources := make(map[string]bool, len(m))
	targets := make(map[catalog.Field]string, len(m))
	for _, e := range m {
		if strings.TrimSpace(e.Source) == "" {
			return ErrInvalidMapping.WithMessage("mapping source column cannot be blank")
		}
		if sources[e.Source] {
			return ErrInvalidMapping.WithMessage(fmt.Sprintf("source column %q is mapped more than once", e.Source))
		}
		sources[e.Source] = true
		if !e.Target.IsValid() {
			return ErrInvalidMapping.WithMessage(fmt.Sprintf("unknown target field %q for column %q; allowed: %s",
				e.Target, e.Source, strings.Join(catalog.FieldNames(catalog.AllFields), ", ")))
		}
		if prev, dup := targets[e.Target]; dup {
			return ErrInvalidMapping.WithMessage(fmt.Sprintf("target field %q is mapped from both %q and %q",
				e.Target, prev, e.Source))
		}
		targets[e.Target] = e.Source
	}
	return nil
}

// Targets returns the mapped target fields in mapping order
func (m FieldMapping) Targets() []catalog.Field {
	out := make([]catalog.Field, len(m))
	for i, e := range m {
		out[i] = e.Target
	}
	return out
}

// MarshalJSON renders the mapping as an ordered JSON object
func (m FieldMapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Source)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(string(e.Target))
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order
func (m *FieldMapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object")
	}
	out := FieldMapping{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var target string
		if err := dec.Decode(&target); err != nil {
			return fmt.Errorf("value for %q must be a string: %w", key, err)
		}
		out = append(out, MappingEntry{Source: key, Target: catalog.Field(strings.TrimSpace(target))})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// Value implements driver.Valuer
func (m FieldMapping) Value() (driver.Value, error) {
	b, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *FieldMapping) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*m = FieldMapping{}
		return nil
	case string:
		return m.UnmarshalJSON([]byte(v))
	case []byte:
		return m.UnmarshalJSON(v)
	default:
		return fmt.Errorf("cannot scan %T into FieldMapping", value)
	}
}
