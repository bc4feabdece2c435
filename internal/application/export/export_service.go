package exportapp

import (
	"context"
	"time"

	"github.com/erp/interchange/internal/domain/catalog"
	csvexport "github.com/erp/interchange/internal/infrastructure/export"
	"github.com/erp/interchange/internal/infrastructure/logger"
	"github.com/erp/interchange/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ExportFile is a rendered on-demand export
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders the catalog for direct download
type ExportService struct {
	products  catalog.ProductRepository
	generator *csvexport.Generator
	now       func() time.Time
	logger    *zap.Logger
}

// NewExportService creates a new ExportService
func NewExportService(products catalog.ProductRepository, generator *csvexport.Generator, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		products:  products,
		generator: generator,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// Export renders the products matching filter
func (s *ExportService) Export(ctx context.Context, filter catalog.ProductFilter) (*ExportFile, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "export", "download")
	defer span.End()

	products, err := s.products.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	data, err := s.generator.Generate(products)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrRowCount, len(products))
	logger.WithLogger(ctx, s.logger).Debug("Catalog exported",
		zap.Int("rows", len(products)),
		zap.String("category", filter.Category),
	)
	return &ExportFile{
		Name:        csvexport.Filename(s.now()),
		ContentType: csvexport.ContentType,
		Data:        data,
		Rows:        len(products),
	}, nil
}
