package handler

import (
	"context"
	"testing"

	exportapp "github.com/erp/interchange/internal/application/export"
	importapp "github.com/erp/interchange/internal/application/import"
	"github.com/erp/interchange/internal/domain/catalog"
	"github.com/erp/interchange/internal/domain/export"
	"github.com/erp/interchange/internal/infrastructure/delivery"
	csvexport "github.com/erp/interchange/internal/infrastructure/export"
	"github.com/erp/interchange/internal/infrastructure/logger"
	"github.com/erp/interchange/internal/infrastructure/persistence"
	"github.com/erp/interchange/internal/infrastructure/scheduler"
	"github.com/erp/interchange/internal/infrastructure/storage"
	"github.com/erp/interchange/internal/interfaces/http/middleware"
	"github.com/erp/interchange/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// apiFixture serves the full API over an in-memory sqlite catalog.
// Export runs execute synchronously and ship to in-memory object storage.
type apiFixture struct {
	engine   *gin.Engine
	products *persistence.GormProductRepository
	runs     *persistence.GormExportRunRepository
	locker   *scheduler.LocalLocker
	objects  *storage.MemoryObjectStorage
	clock    *scheduler.FakeClock
}

func newAPIFixture(t *testing.T, maxUploadSize int64) *apiFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := zaptest.NewLogger(t)

	f := &apiFixture{
		products: persistence.NewGormProductRepository(db),
		runs:     persistence.NewGormExportRunRepository(db),
		locker:   scheduler.NewLocalLocker(),
		objects:  storage.NewMemoryObjectStorage(),
		clock:    scheduler.NewFakeClock(testutil.FixedTime()),
	}
	templates := persistence.NewGormMappingTemplateRepository(db)
	schedules := persistence.NewGormExportScheduleRepository(db)

	generator, err := csvexport.NewGenerator()
	require.NoError(t, err)

	deliverer := delivery.NewRouter().Register(export.DestinationS3, delivery.NewS3Deliverer(f.objects, log))
	executor, err := exportapp.NewRunExecutor(schedules, f.runs, f.products, deliverer,
		exportapp.WithClock(f.clock),
		exportapp.WithLocker(f.locker),
		exportapp.WithSynchronousExecution(),
		exportapp.WithExecutorLogger(log),
	)
	require.NoError(t, err)

	imports := NewImportHandler(importapp.NewImportService(f.products, importapp.NewMappingResolver(templates),
		importapp.WithImportLogger(log)), maxUploadSize)
	exports := NewExportHandler(exportapp.NewExportService(f.products, generator, log))
	tpl := NewTemplateHandler(importapp.NewTemplateService(templates, log))
	sched := NewScheduleHandler(
		exportapp.NewScheduleService(schedules, log),
		executor,
		exportapp.NewRunHistoryService(f.runs, schedules, executor),
	)

	engine := gin.New()
	engine.Use(middleware.RequestID(), logger.GinMiddleware(log))
	api := engine.Group("/api/v1")
	api.POST("/import/preview", imports.Preview)
	api.POST("/import/commit", imports.Commit)
	api.GET("/export/products", exports.ExportProducts)
	api.GET("/templates", tpl.List)
	api.POST("/templates", tpl.Create)
	api.GET("/templates/:id", tpl.Get)
	api.PUT("/templates/:id", tpl.Update)
	api.DELETE("/templates/:id", tpl.Delete)
	api.GET("/exports", sched.List)
	api.POST("/exports", sched.Create)
	api.GET("/exports/:id", sched.Get)
	api.PUT("/exports/:id", sched.Update)
	api.DELETE("/exports/:id", sched.Delete)
	api.POST("/exports/trigger/:id", sched.Trigger)
	api.GET("/exports/:id/runs", sched.ListRuns)
	api.GET("/exports/runs/:runId", sched.GetRun)
	api.POST("/exports/runs/:runId/retry", sched.RetryRun)
	f.engine = engine
	return f
}

func (f *apiFixture) seed(t *testing.T, name, category string, price int64) {
	t.Helper()
	p := decimal.NewFromInt(price)
	_, _, err := f.products.Upsert(context.Background(), catalog.ProductFields{Name: &name, Price: &p, Category: &category})
	require.NoError(t, err)
}

func (f *apiFixture) holdScheduleLock(t *testing.T, id uuid.UUID) {
	t.Helper()
	ok, err := f.locker.TryLock(context.Background(), "export-schedule:"+id.String())
	require.NoError(t, err)
	require.True(t, ok)
}
