// Package importapp coordinates CSV catalog imports: dry-run previews,
// idempotent commits and the mapping templates they can reuse.
package importapp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/erp/interchange/internal/domain/bulk"
	"github.com/erp/interchange/internal/domain/catalog"
	csvimport "github.com/erp/interchange/internal/infrastructure/import"
	"github.com/erp/interchange/internal/infrastructure/logger"
	"github.com/erp/interchange/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultPreviewLimit caps the rows echoed back by Preview
const DefaultPreviewLimit = 100

// ImportRequest is one uploaded file plus the mapping to apply to it
type ImportRequest struct {
	File    io.Reader
	Mapping MappingRef
}

// ImportService runs the parse, map and validate pipeline over uploaded
// files and applies valid rows to the catalog
type ImportService struct {
	products     catalog.ProductRepository
	resolver     *MappingResolver
	processor    *csvimport.ImportProcessor
	previewLimit int
	metrics      *telemetry.InterchangeMetrics
	logger       *zap.Logger
}

// ImportServiceOption is a functional option for ImportService
type ImportServiceOption func(*ImportService)

// WithPreviewLimit caps the rows returned by Preview
func WithPreviewLimit(n int) ImportServiceOption {
	return func(s *ImportService) {
		if n > 0 {
			s.previewLimit = n
		}
	}
}

// WithProcessor replaces the default CSV processor
func WithProcessor(p *csvimport.ImportProcessor) ImportServiceOption {
	return func(s *ImportService) {
		s.processor = p
	}
}

// WithImportMetrics records commit outcomes
func WithImportMetrics(m *telemetry.InterchangeMetrics) ImportServiceOption {
	return func(s *ImportService) {
		s.metrics = m
	}
}

// WithImportLogger sets the service logger
func WithImportLogger(l *zap.Logger) ImportServiceOption {
	return func(s *ImportService) {
		s.logger = l
	}
}

// NewImportService creates a new ImportService
func NewImportService(products catalog.ProductRepository, resolver *MappingResolver, opts ...ImportServiceOption) *ImportService {
	s := &ImportService{
		products:     products,
		resolver:     resolver,
		previewLimit: DefaultPreviewLimit,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.processor == nil {
		s.processor = csvimport.NewImportProcessor()
	}
	return s
}

// Preview validates every row without touching the catalog
func (s *ImportService) Preview(ctx context.Context, req ImportRequest) (*bulk.PreviewResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "import", "preview")
	defer span.End()

	ic, err := s.open(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &bulk.PreviewResult{
		Rows:     []bulk.ImportRowResult{},
		Errors:   []bulk.LineErrors{},
		Warnings: ic.Warnings(),
	}
	err = ic.Each(ctx, func(row csvimport.ProcessedRow) error {
		result.TotalRows++
		if row.Result.Valid() {
			result.ValidRows++
		} else {
			result.ErrorRows++
			result.Errors = append(result.Errors, bulk.LineErrors{Line: row.Result.Line, Errors: row.Result.Errors})
		}
		if len(result.Rows) < s.previewLimit {
			result.Rows = append(result.Rows, row.Result)
		} else {
			result.Truncated = true
		}
		return nil
	})
	if err != nil {
		err = classify(err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTotalRows, result.TotalRows,
		telemetry.SpanAttrValidRows, result.ValidRows,
	)
	logger.WithLogger(ctx, s.logger).Debug("Import previewed",
		zap.Int("total_rows", result.TotalRows),
		zap.Int("error_rows", result.ErrorRows),
	)
	return result, nil
}

// Commit upserts every valid row keyed on the normalized product name.
// Rows with errors are skipped and reported; a storage failure aborts the
// call with ErrStorageUnavailable, leaving rows applied so far in place.
func (s *ImportService) Commit(ctx context.Context, req ImportRequest) (*bulk.ImportSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "import", "commit")
	defer span.End()

	ic, err := s.open(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	summary := &bulk.ImportSummary{Errors: []bulk.LineErrors{}}
	err = ic.Each(ctx, func(row csvimport.ProcessedRow) error {
		if !row.Result.Valid() {
			summary.Skipped++
			summary.Errors = append(summary.Errors, bulk.LineErrors{Line: row.Result.Line, Errors: row.Result.Errors})
			return nil
		}

		_, outcome, err := s.products.Upsert(ctx, row.Fields)
		if err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrStorageUnavailable, row.Result.Line, err)
		}
		if outcome == catalog.UpsertCreated {
			summary.Created++
		} else {
			summary.Updated++
		}
		return nil
	})
	if err != nil {
		err = classify(err)
		s.logFailure(ctx, span, "Import commit aborted", err, summary)
		return nil, err
	}

	s.metrics.RecordImport(ctx, summary.Created, summary.Updated, summary.Skipped)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCreated, summary.Created,
		telemetry.SpanAttrUpdated, summary.Updated,
		telemetry.SpanAttrSkipped, summary.Skipped,
	)
	logger.WithLogger(ctx, s.logger).Info("Import committed",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (s *ImportService) open(ctx context.Context, req ImportRequest) (*csvimport.ImportContext, error) {
	if req.File == nil {
		return nil, ErrIO.WithMessage("no file was uploaded")
	}
	mapping, err := s.resolver.Resolve(ctx, req.Mapping)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(req.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	ic, err := s.processor.Open(data, mapping)
	if err != nil {
		return nil, classify(err)
	}
	return ic, nil
}

// classify maps parser failures onto the fatal import errors and passes
// everything else through
func classify(err error) error {
	switch {
	case errors.Is(err, csvimport.ErrUnreadable):
		return fmt.Errorf("%w: %w", ErrIO, err)
	case csvimport.IsFormatError(err):
		return ErrFormat.WithMessage(err.Error())
	}
	return err
}

func (s *ImportService) logFailure(ctx context.Context, span trace.Span, msg string, err error, summary *bulk.ImportSummary) {
	telemetry.RecordError(span, err)
	logger.WithLogger(ctx, s.logger).Error(msg,
		zap.Error(err),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
	)
}
