package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	invoicingapp "github.com/freightdesk/backend/internal/application/invoicing"
	"github.com/freightdesk/backend/internal/infrastructure/cache"
	"github.com/freightdesk/backend/internal/infrastructure/config"
	"github.com/freightdesk/backend/internal/infrastructure/event"
	"github.com/freightdesk/backend/internal/infrastructure/logger"
	"github.com/freightdesk/backend/internal/infrastructure/migration"
	"github.com/freightdesk/backend/internal/infrastructure/persistence"
	"github.com/freightdesk/backend/internal/infrastructure/telemetry"
	"github.com/freightdesk/backend/internal/interfaces/http/handler"
	"github.com/freightdesk/backend/internal/interfaces/http/router"
	"github.com/freightdesk/backend/migrations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}

	// Log export runs only when both telemetry and log shipping are on.
	logsCfg := telCfg
	logsCfg.Enabled = telCfg.Enabled && cfg.Telemetry.LogsEnabled
	logProvider, err := telemetry.NewLoggerProvider(ctx, logsCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}

	log, err := logger.New(logCfg, logProvider.Core(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting freight invoicing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telCfg, cfg.Telemetry.MetricsInterval, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:       cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:        cfg.Database.DBName,
		SlowQuery:     cfg.Database.SlowQuery,
		WithVariables: cfg.Telemetry.DBTraceVariables,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	if cfg.Database.MigrateOnStart {
		if err := migrateUp(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	rateLineRepo := persistence.NewGormRateLineRepository(db.DB)
	currencyRepo := persistence.NewGormCurrencyRepository(db.DB)
	currencyRateRepo := persistence.NewGormCurrencyRateRepository(db.DB)
	vatRateRepo := persistence.NewGormVatRateRepository(db.DB)
	snapshotRepo := persistence.NewGormInvoiceRateSnapshotRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Event bus
	invoiceMetrics, err := telemetry.NewInvoiceMetrics(meterProvider.Meter("freightdesk/invoicing"), log)
	if err != nil {
		log.Fatal("Failed to create invoice metrics", zap.Error(err))
	}
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewIdempotentHandler(
		invoicingapp.NewInvoiceLifecycleHandler(log, invoiceMetrics),
		idempotencyStore,
		log,
		event.WithDeliveryRecorder(invoiceMetrics),
	))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Services
	invoiceService := invoicingapp.NewInvoiceService(
		invoiceRepo, rateLineRepo, currencyRateRepo, vatRateRepo, snapshotRepo,
		txScope,
		nil, // system clock
		invoicingapp.InvoiceServiceConfig{
			PaymentTermDays: cfg.Invoicing.PaymentTermDays,
			IdempotencyTTL:  cfg.Invoicing.IdempotencyTTL,
		},
		log,
	)
	invoiceService.SetEventPublisher(eventBus)
	invoiceService.SetIdempotencyStore(idempotencyStore)
	rateService := invoicingapp.NewRateLineService(rateLineRepo, currencyRateRepo, vatRateRepo, nil)
	referenceService := invoicingapp.NewReferenceDataService(currencyRepo, currencyRateRepo, vatRateRepo, nil)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.EngineConfig{
		HTTP:        cfg.HTTP,
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     tracerProvider.IsEnabled(),
		Meter:       meterProvider.Meter("freightdesk/http"),
		Logger:      log,
	}, router.Handlers{
		Health:    handler.NewHealthHandler(cfg.App.Name, cfg.App.Version, db),
		Invoices:  handler.NewInvoiceHandler(invoiceService, referenceService),
		Rates:     handler.NewRateHandler(rateService),
		Reference: handler.NewReferenceDataHandler(referenceService),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Event handlers still running at shutdown", zap.Error(err))
	}
	if closer, ok := idempotencyStore.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn("Error closing idempotency store", zap.Error(err))
		}
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error flushing metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error flushing traces", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error flushing logs", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func migrateUp(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.SQL()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// Close would also close sqlDB through the postgres driver, so the migrator is left open.
	return m.Up()
}
