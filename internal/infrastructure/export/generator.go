package csvexport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/erp/interchange/internal/domain/catalog"
)

// ContentType is the media type of generated files
const ContentType = "text/csv; charset=utf-8"

// Generator renders catalog snapshots as CSV. Output depends only on the
// products passed in, never on their order.
type Generator struct {
	columns   []catalog.Field
	delimiter rune
}

// GeneratorOption is a functional option for Generator configuration
type GeneratorOption func(*Generator)

// WithColumns selects and orders the output columns
func WithColumns(columns ...catalog.Field) GeneratorOption {
	return func(g *Generator) {
		g.columns = columns
	}
}

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) GeneratorOption {
	return func(g *Generator) {
		g.delimiter = d
	}
}

// NewGenerator creates a generator writing every catalog field by default
func NewGenerator(opts ...GeneratorOption) (*Generator, error) {
	g := &Generator{
		columns:   catalog.AllFields,
		delimiter: ',',
	}
	for _, opt := range opts {
		opt(g)
	}

	if len(g.columns) == 0 {
		return nil, fmt.Errorf("at least one export column is required")
	}
	seen := make(map[catalog.Field]bool, len(g.columns))
	for _, c := range g.columns {
		if !c.IsValid() {
			return nil, fmt.Errorf("unknown export column %q", c)
		}
		if seen[c] {
			return nil, fmt.Errorf("export column %q listed twice", c)
		}
		seen[c] = true
	}
	if g.delimiter == '"' || g.delimiter == '\r' || g.delimiter == '\n' ||
		!utf8.ValidRune(g.delimiter) || g.delimiter == utf8.RuneError {
		return nil, fmt.Errorf("invalid export delimiter %q", g.delimiter)
	}
	return g, nil
}

// Columns returns the output columns in order
func (g *Generator) Columns() []catalog.Field {
	return g.columns
}

// Generate writes a header row followed by one row per product ordered by
// normalized name. The input slice is not modified.
func (g *Generator) Generate(products []catalog.Product) ([]byte, error) {
	sorted := make([]catalog.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.NormalizedName != b.NormalizedName {
			return a.NormalizedName < b.NormalizedName
		}
		return a.ID.String() < b.ID.String()
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = g.delimiter

	if err := w.Write(catalog.FieldNames(g.columns)); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(g.columns))
	for i := range sorted {
		for c, col := range g.columns {
			record[c] = cell(&sorted[i], col)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write product %q: %w", sorted[i].Name, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func cell(p *catalog.Product, field catalog.Field) string {
	switch field {
	case catalog.FieldName:
		return p.Name
	case catalog.FieldDescription:
		return p.Description
	case catalog.FieldPrice:
		return p.Price.String()
	case catalog.FieldStock:
		return strconv.Itoa(p.Stock)
	case catalog.FieldCategory:
		return p.Category
	case catalog.FieldBrand:
		return p.Brand
	case catalog.FieldSKU:
		return p.SKU
	case catalog.FieldImages:
		return p.Images.String()
	}
	return ""
}

// Filename returns the download name of an export generated at now
func Filename(now time.Time) string {
	return "catalog-export-" + now.UTC().Format("20060102-150405") + ".csv"
}
