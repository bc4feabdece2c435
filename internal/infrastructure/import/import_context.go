package csvimport

import (
	"context"
	"fmt"
	"io"

	"github.com/erp/interchange/internal/domain/bulk"
	"github.com/erp/interchange/internal/domain/catalog"
)

// ProcessedRow is one data row after mapping and validation
type ProcessedRow struct {
	Result bulk.ImportRowResult
	Fields catalog.ProductFields
}

// ImportProcessor wires the parser, the mapper and the validator together
type ImportProcessor struct {
	parserOpts []ParserOption
	validator  *RowValidator
}

// ProcessorOption is a functional option for ImportProcessor
type ProcessorOption func(*ImportProcessor)

// WithParserOptions forwards options to every parser the processor opens
func WithParserOptions(opts ...ParserOption) ProcessorOption {
	return func(p *ImportProcessor) {
		p.parserOpts = append(p.parserOpts, opts...)
	}
}

// WithValidator replaces the default row validator
func WithValidator(v *RowValidator) ProcessorOption {
	return func(p *ImportProcessor) {
		p.validator = v
	}
}

// NewImportProcessor creates a new import processor
func NewImportProcessor(opts ...ProcessorOption) *ImportProcessor {
	p := &ImportProcessor{}
	for _, opt := range opts {
		opt(p)
	}
	if p.validator == nil {
		p.validator = NewRowValidator()
	}
	return p
}

// Open parses the header of data and binds the mapping to it. A nil mapping
// falls back to the identity mapping over the header columns.
func (p *ImportProcessor) Open(data []byte, mapping bulk.FieldMapping) (*ImportContext, error) {
	parser, err := ParseFromBytes(data, p.parserOpts...)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}

	if mapping == nil {
		mapping = bulk.IdentityMapping(parser.Headers())
		if len(mapping) == 0 {
			return nil, bulk.ErrInvalidMapping.WithMessage(
				"no mapping supplied and no header column names a catalog field")
		}
	}
	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	mapper := NewFieldMapper(mapping)
	ic := &ImportContext{
		parser:    parser,
		mapper:    mapper,
		validator: p.validator,
	}
	for _, col := range mapper.MissingSources(parser.Headers()) {
		ic.warnings = append(ic.warnings, fmt.Sprintf("mapped column %q is not in the file header", col))
	}
	return ic, nil
}

// ImportContext is an opened import: a parsed header bound to a mapping.
// Rows can be walked any number of times.
type ImportContext struct {
	parser    *CSVParser
	mapper    *FieldMapper
	validator *RowValidator
	warnings  []string
}

// Headers returns the file header
func (ic *ImportContext) Headers() []string {
	return ic.parser.Headers()
}

// Mapping returns the mapping in effect
func (ic *ImportContext) Mapping() bulk.FieldMapping {
	return ic.mapper.Mapping()
}

// Warnings returns non-fatal notes about the mapping
func (ic *ImportContext) Warnings() []string {
	return ic.warnings
}

// Each walks every data row from the start, calling fn with the row's
// mapped data and validation outcome. Row problems never stop the walk;
// a structural parse error, a cancelled context or an error from fn do.
func (ic *ImportContext) Each(ctx context.Context, fn func(ProcessedRow) error) error {
	ic.parser.Reset()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		row, err := ic.parser.ReadRow()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := fn(ic.process(row)); err != nil {
			return err
		}
	}
}

func (ic *ImportContext) process(row *Row) ProcessedRow {
	result := bulk.ImportRowResult{
		Line:       row.LineNumber,
		RawData:    row.Data,
		MappedData: ic.mapper.Map(row.Data),
	}
	if row.Err != nil {
		result.Errors = []bulk.RowIssue{*row.Err}
		return ProcessedRow{Result: result}
	}

	result.Errors = ic.validator.Validate(result.MappedData)
	out := ProcessedRow{Result: result}
	if result.Valid() {
		out.Fields = ToProductFields(result.MappedData)
	}
	return out
}
