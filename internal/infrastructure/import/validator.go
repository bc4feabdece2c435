package csvimport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/erp/interchange/internal/domain/bulk"
	"github.com/erp/interchange/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// Maximum field lengths in runes
const (
	MaxNameLength        = 255
	MaxDescriptionLength = 5000
	MaxShortFieldLength  = 100
)

// CheckFunc inspects one mapped value. present is false when the mapping
// does not produce the field at all. It returns an empty message on success.
type CheckFunc func(value string, present bool) string

// RowRule is one validation check bound to a target field
type RowRule struct {
	Field catalog.Field
	Code  string
	Check CheckFunc
}

// RuleBuilder helps build the rules of one field fluently
type RuleBuilder struct {
	field catalog.Field
	rules []RowRule
}

// For starts a rule set for the given field
func For(field catalog.Field) *RuleBuilder {
	return &RuleBuilder{field: field}
}

// Required fails with code when the field is absent or blank
func (b *RuleBuilder) Required(code string) *RuleBuilder {
	field := b.field
	return b.add(code, func(value string, present bool) string {
		if !present || strings.TrimSpace(value) == "" {
			return fmt.Sprintf("%s is required", field)
		}
		return ""
	})
}

// Decimal fails with code when a non-blank value is not a non-negative decimal
func (b *RuleBuilder) Decimal(code string) *RuleBuilder {
	field := b.field
	return b.add(code, func(value string, present bool) string {
		if blank(value, present) {
			return ""
		}
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return fmt.Sprintf("%s must be a decimal number, got %q", field, value)
		}
		if d.IsNegative() {
			return fmt.Sprintf("%s cannot be negative, got %q", field, value)
		}
		return ""
	})
}

// Int fails with code when a non-blank value is not a non-negative integer
func (b *RuleBuilder) Int(code string) *RuleBuilder {
	field := b.field
	return b.add(code, func(value string, present bool) string {
		if blank(value, present) {
			return ""
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Sprintf("%s must be a whole number, got %q", field, value)
		}
		if n < 0 {
			return fmt.Sprintf("%s cannot be negative, got %q", field, value)
		}
		return ""
	})
}

// DecimalBounds fails with code when a decimal value is not below limit or
// carries more than scale decimal places. Unparsable values are left to
// Decimal.
func (b *RuleBuilder) DecimalBounds(code string, limit decimal.Decimal, scale int32) *RuleBuilder {
	field := b.field
	return b.add(code, func(value string, present bool) string {
		if blank(value, present) {
			return ""
		}
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return ""
		}
		if d.GreaterThanOrEqual(limit) {
			return fmt.Sprintf("%s must be less than %s, got %q", field, limit.String(), value)
		}
		if !d.Equal(d.Truncate(scale)) {
			return fmt.Sprintf("%s allows at most %d decimal places, got %q", field, scale, value)
		}
		return ""
	})
}

// IntMax fails with code when an integer value exceeds limit. Unparsable
// values are left to Int.
func (b *RuleBuilder) IntMax(code string, limit int64) *RuleBuilder {
	field := b.field
	return b.add(code, func(value string, present bool) string {
		if blank(value, present) {
			return ""
		}
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return fmt.Sprintf("%s must be at most %d, got %q", field, limit, value)
			}
			return ""
		}
		if n > limit {
			return fmt.Sprintf("%s must be at most %d, got %q", field, limit, value)
		}
		return ""
	})
}

// MaxLength fails with field_too_long when the value exceeds n runes
func (b *RuleBuilder) MaxLength(n int) *RuleBuilder {
	field := b.field
	return b.add(bulk.CodeFieldTooLong, func(value string, present bool) string {
		if l := utf8.RuneCountInString(value); l > n {
			return fmt.Sprintf("%s is %d characters long, maximum is %d", field, l, n)
		}
		return ""
	})
}

// Custom adds an arbitrary check
func (b *RuleBuilder) Custom(code string, fn CheckFunc) *RuleBuilder {
	return b.add(code, fn)
}

// Build returns the accumulated rules
func (b *RuleBuilder) Build() []RowRule {
	return b.rules
}

func (b *RuleBuilder) add(code string, fn CheckFunc) *RuleBuilder {
	b.rules = append(b.rules, RowRule{Field: b.field, Code: code, Check: fn})
	return b
}

func blank(value string, present bool) bool {
	return !present || strings.TrimSpace(value) == ""
}

// DefaultRules is the product rule table
func DefaultRules() []RowRule {
	var rules []RowRule
	rules = append(rules, For(catalog.FieldName).Required(bulk.CodeMissingName).MaxLength(MaxNameLength).Build()...)
	rules = append(rules, For(catalog.FieldPrice).
		Required(bulk.CodeMissingRequiredField).
		Decimal(bulk.CodeInvalidPrice).
		DecimalBounds(bulk.CodeInvalidPrice, catalog.PriceLimit, catalog.PriceScale).
		Build()...)
	rules = append(rules, For(catalog.FieldStock).
		Int(bulk.CodeInvalidStock).
		IntMax(bulk.CodeInvalidStock, catalog.MaxStock).
		Build()...)
	rules = append(rules, For(catalog.FieldDescription).MaxLength(MaxDescriptionLength).Build()...)
	rules = append(rules, For(catalog.FieldCategory).MaxLength(MaxShortFieldLength).Build()...)
	rules = append(rules, For(catalog.FieldBrand).MaxLength(MaxShortFieldLength).Build()...)
	rules = append(rules, For(catalog.FieldSKU).MaxLength(MaxShortFieldLength).Build()...)
	return rules
}

// RowValidator runs a rule table over mapped rows. It holds no per-row
// state and reports every failing rule rather than stopping at the first.
type RowValidator struct {
	rules []RowRule
}

// NewRowValidator creates a validator; with no rules it uses DefaultRules
func NewRowValidator(rules ...RowRule) *RowValidator {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &RowValidator{rules: rules}
}

// Validate checks a mapped row. A value that fails its required check is
// not checked further, so a blank price yields only missing_required_field.
func (v *RowValidator) Validate(mapped map[string]string) []bulk.RowIssue {
	issues := []bulk.RowIssue{}
	failed := make(map[catalog.Field]bool)
	for _, rule := range v.rules {
		if failed[rule.Field] {
			continue
		}
		value, present := mapped[string(rule.Field)]
		if msg := rule.Check(value, present); msg != "" {
			issues = append(issues, bulk.RowIssue{
				Code:    rule.Code,
				Message: msg,
				Field:   string(rule.Field),
			})
			failed[rule.Field] = true
		}
	}
	return issues
}

// ToProductFields converts a validated mapped row into a sparse field set.
// Fields missing from the row stay nil; a blank stock is treated as missing.
func ToProductFields(mapped map[string]string) catalog.ProductFields {
	var f catalog.ProductFields
	str := func(field catalog.Field) *string {
		v, ok := mapped[string(field)]
		if !ok {
			return nil
		}
		return &v
	}

	f.Name = str(catalog.FieldName)
	f.Description = str(catalog.FieldDescription)
	f.Category = str(catalog.FieldCategory)
	f.Brand = str(catalog.FieldBrand)
	f.SKU = str(catalog.FieldSKU)

	if v, ok := mapped[string(catalog.FieldPrice)]; ok && strings.TrimSpace(v) != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			f.Price = &d
		}
	}
	if v, ok := mapped[string(catalog.FieldStock)]; ok && strings.TrimSpace(v) != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			f.Stock = &n
		}
	}
	if v, ok := mapped[string(catalog.FieldImages)]; ok {
		f.Images = catalog.ParseImages(v)
	}
	return f
}
