package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	exportapp "github.com/erp/interchange/internal/application/export"
	importapp "github.com/erp/interchange/internal/application/import"
	"github.com/erp/interchange/internal/domain/export"
	"github.com/erp/interchange/internal/infrastructure/config"
	"github.com/erp/interchange/internal/infrastructure/delivery"
	csvexport "github.com/erp/interchange/internal/infrastructure/export"
	csvimport "github.com/erp/interchange/internal/infrastructure/import"
	"github.com/erp/interchange/internal/infrastructure/logger"
	"github.com/erp/interchange/internal/infrastructure/migration"
	"github.com/erp/interchange/internal/infrastructure/persistence"
	"github.com/erp/interchange/internal/infrastructure/scheduler"
	"github.com/erp/interchange/internal/infrastructure/storage"
	"github.com/erp/interchange/internal/infrastructure/telemetry"
	"github.com/erp/interchange/internal/interfaces/http/handler"
	"github.com/erp/interchange/internal/interfaces/http/middleware"
	"github.com/erp/interchange/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting catalog interchange",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	meter := mp.Meter("catalog-interchange")
	metrics, err := telemetry.NewInterchangeMetrics(meter)
	if err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	// Database
	tracingCfg := telemetry.DefaultDBTracingConfig()
	tracingCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	tracingCfg.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		tracingCfg.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	}
	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:    log,
		LogLevel:  logger.MapGormLogLevel(cfg.Log.Level),
		Tracing:   tracingCfg,
		SlowQuery: tracingCfg.SlowQueryThresh,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := migrateSchema(db, cfg.Database.Driver, log); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	templateRepo := persistence.NewGormMappingTemplateRepository(db.DB)
	scheduleRepo := persistence.NewGormExportScheduleRepository(db.DB)
	runRepo := persistence.NewGormExportRunRepository(db.DB)

	// Import
	processor := csvimport.NewImportProcessor(csvimport.WithParserOptions(
		csvimport.WithDelimiter(cfg.Import.DelimiterRune()),
		csvimport.WithQuote(cfg.Import.QuoteRune()),
		csvimport.WithMaxRows(cfg.Import.MaxRows),
	))
	importService := importapp.NewImportService(productRepo, importapp.NewMappingResolver(templateRepo),
		importapp.WithProcessor(processor),
		importapp.WithPreviewLimit(cfg.Import.PreviewLimit),
		importapp.WithImportMetrics(metrics),
		importapp.WithImportLogger(log),
	)
	templateService := importapp.NewTemplateService(templateRepo, log)

	// Export
	generator, err := csvexport.NewGenerator()
	if err != nil {
		log.Fatal("Failed to create export generator", zap.Error(err))
	}
	deliverer, err := newDeliveryRouter(cfg, log)
	if err != nil {
		log.Fatal("Failed to configure export delivery", zap.Error(err))
	}
	locker, closeLocker := newLocker(ctx, cfg, log)
	defer closeLocker()

	pool := scheduler.NewWorkerPool(scheduler.PoolConfig{
		Workers:    cfg.Scheduler.Workers,
		QueueSize:  cfg.Scheduler.QueueSize,
		JobTimeout: cfg.Scheduler.JobTimeout,
	}, log)
	executor, err := exportapp.NewRunExecutor(scheduleRepo, runRepo, productRepo, deliverer,
		exportapp.WithLocker(locker),
		exportapp.WithWorkerPool(pool),
		exportapp.WithGenerator(generator),
		exportapp.WithExecutorMetrics(metrics),
		exportapp.WithExecutorLogger(log),
	)
	if err != nil {
		log.Fatal("Failed to create export executor", zap.Error(err))
	}
	cron := scheduler.NewCronScheduler(scheduler.CronSchedulerConfig{
		Enabled:      cfg.Scheduler.Enabled,
		TickInterval: cfg.Scheduler.TickInterval,
	}, scheduleRepo, executor, executor.Queue(), scheduler.RealClock{}, log)

	if err := pool.Start(ctx); err != nil {
		log.Fatal("Failed to start export workers", zap.Error(err))
	}
	if err := executor.Recover(ctx); err != nil {
		log.Warn("Export run recovery was incomplete", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := cron.Start(ctx); err != nil {
			log.Fatal("Failed to start export scheduler", zap.Error(err))
		}
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to register HTTP metrics", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	tracingMw := middleware.DefaultTracingConfig()
	tracingMw.Enabled = tp.IsEnabled()
	tracingMw.ServiceName = cfg.Telemetry.ServiceName

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.TracingWithConfig(tracingMw),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(log),
		httpMetrics,
		middleware.Secure(),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimitWithUploads(cfg.HTTP.MaxBodySize, cfg.HTTP.MaxUploadSize),
	)

	routes := router.RegisterAPI(engine, router.Handlers{
		Import:   handler.NewImportHandler(importService, cfg.HTTP.MaxUploadSize),
		Export:   handler.NewExportHandler(exportapp.NewExportService(productRepo, generator, log)),
		Template: handler.NewTemplateHandler(templateService),
		Schedule: handler.NewScheduleHandler(
			exportapp.NewScheduleService(scheduleRepo, log),
			executor,
			exportapp.NewRunHistoryService(runRepo, scheduleRepo, executor),
		),
		System: handler.NewSystemHandler(db, version),
	})
	log.Debug("Routes registered", zap.Int("count", len(routes.Routes())))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := cron.Stop(shutdownCtx); err != nil {
			log.Error("Export scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if err := pool.Stop(shutdownCtx); err != nil {
		log.Error("Export workers did not stop cleanly", zap.Error(err))
	}
	executor.Wait()
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Metrics shutdown failed", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrateSchema applies the embedded SQL migrations on postgres and
// falls back to gorm's AutoMigrate on sqlite
func migrateSchema(db *persistence.Database, driver string, log *zap.Logger) error {
	if driver == "sqlite" {
		return db.AutoMigrate()
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	return m.Up()
}

// newDeliveryRouter registers a deliverer for every destination kind the
// configuration can serve
func newDeliveryRouter(cfg *config.Config, log *zap.Logger) (*delivery.Router, error) {
	var objects storage.ObjectStorage
	if cfg.Storage.Driver == "memory" {
		log.Warn("Using in-memory object storage; s3 exports are not persisted")
		objects = storage.NewMemoryObjectStorage()
	} else {
		s3, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return nil, err
		}
		objects = s3
	}
	r := delivery.NewRouter().Register(export.DestinationS3, delivery.NewS3Deliverer(objects, log))

	if cfg.Email.Host == "" {
		log.Warn("SMTP host not configured; email exports will fail")
		return r, nil
	}
	client, err := delivery.NewSMTPClient(&cfg.Email)
	if err != nil {
		return nil, err
	}
	return r.Register(export.DestinationEmail, delivery.NewEmailDeliverer(client, cfg.Email.From, log)), nil
}

// newLocker returns the redis lock when redis is enabled and reachable,
// otherwise an in-process lock that only guards this replica
func newLocker(ctx context.Context, cfg *config.Config, log *zap.Logger) (scheduler.Locker, func()) {
	if !cfg.Redis.Enabled {
		return scheduler.NewLocalLocker(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, falling back to in-process schedule locks", zap.Error(err))
		_ = client.Close()
		return scheduler.NewLocalLocker(), func() {}
	}

	log.Info("Using redis schedule locks", zap.String("addr", cfg.Redis.Addr()))
	return scheduler.NewRedisLocker(client, "interchange:lock:", cfg.Redis.LockTTL), func() {
		if err := client.Close(); err != nil {
			log.Warn("Error closing redis client", zap.Error(err))
		}
	}
}
