package csvimport

import (
	"strings"
	"testing"

	"github.com/erp/interchange/internal/domain/bulk"
	"github.com/erp/interchange/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(issues []bulk.RowIssue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Code
	}
	return out
}

func TestRuleBuilder(t *testing.T) {
	rules := For(catalog.FieldPrice).
		Required(bulk.CodeMissingRequiredField).
		Decimal(bulk.CodeInvalidPrice).
		Build()

	require.Len(t, rules, 2)
	assert.Equal(t, catalog.FieldPrice, rules[0].Field)
	assert.Equal(t, bulk.CodeMissingRequiredField, rules[0].Code)
	assert.Equal(t, bulk.CodeInvalidPrice, rules[1].Code)
}

func TestRowValidator_Validate(t *testing.T) {
	v := NewRowValidator()

	testCases := []struct {
		name   string
		row    map[string]string
		expect []string
	}{
		{
			name:   "valid row",
			row:    map[string]string{"name": "Lamp", "price": "12.50", "stock": "4"},
			expect: []string{},
		},
		{
			name:   "missing name",
			row:    map[string]string{"price": "1"},
			expect: []string{bulk.CodeMissingName},
		},
		{
			name:   "blank name",
			row:    map[string]string{"name": "  ", "price": "1"},
			expect: []string{bulk.CodeMissingName},
		},
		{
			name:   "price absent",
			row:    map[string]string{"name": "Lamp"},
			expect: []string{bulk.CodeMissingRequiredField},
		},
		{
			name:   "price blank",
			row:    map[string]string{"name": "Lamp", "price": ""},
			expect: []string{bulk.CodeMissingRequiredField},
		},
		{
			name:   "price not a number",
			row:    map[string]string{"name": "Lamp", "price": "abc"},
			expect: []string{bulk.CodeInvalidPrice},
		},
		{
			name:   "negative price",
			row:    map[string]string{"name": "Lamp", "price": "-1"},
			expect: []string{bulk.CodeInvalidPrice},
		},
		{
			name:   "stock not an integer",
			row:    map[string]string{"name": "Lamp", "price": "1", "stock": "2.5"},
			expect: []string{bulk.CodeInvalidStock},
		},
		{
			name:   "negative stock",
			row:    map[string]string{"name": "Lamp", "price": "1", "stock": "-3"},
			expect: []string{bulk.CodeInvalidStock},
		},
		{
			name:   "stock above the storable range",
			row:    map[string]string{"name": "Lamp", "price": "1", "stock": "3000000000"},
			expect: []string{bulk.CodeInvalidStock},
		},
		{
			name:   "stock at the storable maximum",
			row:    map[string]string{"name": "Lamp", "price": "1", "stock": "2147483647"},
			expect: []string{},
		},
		{
			name:   "stock beyond int64",
			row:    map[string]string{"name": "Lamp", "price": "1", "stock": "99999999999999999999"},
			expect: []string{bulk.CodeInvalidStock},
		},
		{
			name:   "price above the storable range",
			row:    map[string]string{"name": "Lamp", "price": "1e20"},
			expect: []string{bulk.CodeInvalidPrice},
		},
		{
			name:   "price just below the limit",
			row:    map[string]string{"name": "Lamp", "price": "99999999999999.9999"},
			expect: []string{},
		},
		{
			name:   "price with too many decimal places",
			row:    map[string]string{"name": "Lamp", "price": "1.23456"},
			expect: []string{bulk.CodeInvalidPrice},
		},
		{
			name:   "trailing zeros do not count as precision",
			row:    map[string]string{"name": "Lamp", "price": "10.500000"},
			expect: []string{},
		},
		{
			name:   "blank stock is allowed",
			row:    map[string]string{"name": "Lamp", "price": "1", "stock": ""},
			expect: []string{},
		},
		{
			name:   "all problems reported together",
			row:    map[string]string{"name": "", "price": "x", "stock": "y"},
			expect: []string{bulk.CodeMissingName, bulk.CodeInvalidPrice, bulk.CodeInvalidStock},
		},
		{
			name:   "name too long",
			row:    map[string]string{"name": strings.Repeat("a", MaxNameLength+1), "price": "1"},
			expect: []string{bulk.CodeFieldTooLong},
		},
		{
			name:   "sku too long",
			row:    map[string]string{"name": "Lamp", "price": "1", "sku": strings.Repeat("x", MaxShortFieldLength+1)},
			expect: []string{bulk.CodeFieldTooLong},
		},
		{
			name:   "length counts runes",
			row:    map[string]string{"name": "Lamp", "price": "1", "brand": strings.Repeat("é", MaxShortFieldLength)},
			expect: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, codes(v.Validate(tc.row)))
		})
	}
}

func TestRowValidator_IssueCarriesField(t *testing.T) {
	issues := NewRowValidator().Validate(map[string]string{"name": "Lamp", "price": "-2"})
	require.Len(t, issues, 1)
	assert.Equal(t, "price", issues[0].Field)
	assert.Contains(t, issues[0].Message, "negative")
}

func TestRowValidator_RangeMessages(t *testing.T) {
	issues := NewRowValidator().Validate(map[string]string{"name": "Lamp", "price": "1e20", "stock": "3000000000"})
	require.Len(t, issues, 2, "one issue per field")
	assert.Contains(t, issues[0].Message, "less than")
	assert.Contains(t, issues[1].Message, "at most 2147483647")
}

func TestRowValidator_CustomRules(t *testing.T) {
	rules := For(catalog.FieldSKU).Custom("bad_sku", func(value string, present bool) string {
		if present && !strings.HasPrefix(value, "SKU-") {
			return "sku must start with SKU-"
		}
		return ""
	}).Build()

	v := NewRowValidator(rules...)
	assert.Empty(t, v.Validate(map[string]string{"sku": "SKU-1"}))
	assert.Equal(t, []string{"bad_sku"}, codes(v.Validate(map[string]string{"sku": "1"})))
	assert.Empty(t, v.Validate(map[string]string{}), "custom rule set replaces the defaults")
}

func TestToProductFields(t *testing.T) {
	t.Run("present fields are set", func(t *testing.T) {
		f := ToProductFields(map[string]string{
			"name":        "Lamp",
			"description": "",
			"price":       "12.50",
			"stock":       "3",
			"images":      "a.png|b.png",
		})

		require.NotNil(t, f.Name)
		assert.Equal(t, "Lamp", *f.Name)
		require.NotNil(t, f.Description)
		assert.Equal(t, "", *f.Description)
		require.NotNil(t, f.Price)
		assert.True(t, decimal.RequireFromString("12.5").Equal(*f.Price))
		require.NotNil(t, f.Stock)
		assert.Equal(t, 3, *f.Stock)
		assert.Equal(t, catalog.Images{"a.png", "b.png"}, f.Images)
	})

	t.Run("absent fields stay nil", func(t *testing.T) {
		f := ToProductFields(map[string]string{"name": "Lamp", "price": "1", "stock": ""})
		assert.Nil(t, f.Description)
		assert.Nil(t, f.Category)
		assert.Nil(t, f.Stock)
		assert.Nil(t, f.Images)
	})
}
