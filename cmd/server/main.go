package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swimteam/backend/internal/application/importer"
	"github.com/swimteam/backend/internal/application/query"
	"github.com/swimteam/backend/internal/application/session"
	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/infrastructure/cache"
	"github.com/swimteam/backend/internal/infrastructure/config"
	"github.com/swimteam/backend/internal/infrastructure/event"
	"github.com/swimteam/backend/internal/infrastructure/logger"
	"github.com/swimteam/backend/internal/infrastructure/persistence"
	"github.com/swimteam/backend/internal/infrastructure/telemetry"
	"github.com/swimteam/backend/internal/interfaces/http/handler"
	"github.com/swimteam/backend/internal/interfaces/http/middleware"
	"github.com/swimteam/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//	@title			Swim Team Backend API
//	@version		1.0
//	@description	Selection filters, record forms and result lists for a swim team.

//	@host		localhost:8080
//	@BasePath	/api/v1

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
		_ = logger.Sync(log)
	}()

	log.Info("Starting swim team backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database_driver", cfg.Database.Driver),
	)

	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()
	var meter metric.Meter
	if mp.IsEnabled() {
		meter = mp.Meter(cfg.Telemetry.ServiceName)
	}

	lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer func() {
		if err := lp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	log = lp.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	checks := map[string]handler.HealthCheck{}

	// Record store
	var records shared.RecordStore
	if cfg.Database.Driver == config.DriverMemory {
		records = persistence.NewMemoryRecordStore(persistence.WithInLimit(cfg.Query.InLimit))
		log.Warn("Using in-memory record store; records are lost on restart")
	} else {
		db, err := persistence.NewDatabase(&cfg.Database, log,
			persistence.WithLogLevel(logger.MapGormLogLevel(cfg.Log.Level)),
			persistence.WithTracing(telemetry.DBTracingConfig{
				Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
				LogFullSQL: cfg.Telemetry.DBLogFullSQL,
			}),
		)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
		log.Info("Database connected successfully")
		records = persistence.NewGormRecordStore(db.DB, persistence.WithGormInLimit(cfg.Query.InLimit))
		checks["database"] = func(context.Context) error { return db.Ping() }
	}

	// Record changes invalidate cached list queries
	bus := event.NewInMemoryEventBus(log)
	if cfg.Query.CacheTTL > 0 {
		queryCache := cache.NewQueryCache(cfg.Query.CacheTTL, cfg.Query.CacheMaxItems, log)
		bus.Subscribe(queryCache, queryCache.EventTypes()...)
		records = cache.NewCachedRecordStore(records, queryCache)
		if meter != nil {
			if err := cache.RegisterQueryCacheMetrics(meter, queryCache); err != nil {
				log.Warn("Query cache metrics not registered", zap.Error(err))
			}
		}
		log.Info("Query cache enabled",
			zap.Duration("ttl", cfg.Query.CacheTTL),
			zap.Int("max_items", cfg.Query.CacheMaxItems))
	}

	// Selection snapshots
	snapshots, err := cache.NewSnapshotStoreFactory(cfg.Redis, cfg.Filter,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create snapshot store", zap.Error(err))
	}
	if redisStore, ok := snapshots.(*cache.RedisSnapshotStore); ok {
		defer func() {
			if err := redisStore.Close(); err != nil {
				log.Error("Error closing Redis", zap.Error(err))
			}
		}()
		checks["redis"] = func(ctx context.Context) error {
			return redisStore.GetClient().Ping(ctx).Err()
		}
	}

	lang, err := language.Parse(cfg.Query.Locale)
	if err != nil {
		log.Warn("Unknown collation locale, using English",
			zap.String("locale", cfg.Query.Locale), zap.Error(err))
		lang = language.English
	}

	registry := session.NewRegistry(snapshots, records,
		session.WithKeyPrefix(cfg.Filter.StorageKey),
		session.WithIdleTTL(cfg.Filter.SessionIdleTTL),
		session.WithMaxSessions(cfg.Filter.MaxSessions),
		session.WithPublisher(bus),
		session.WithLogger(log),
	)
	composer := query.NewComposer(records,
		query.WithInLimit(cfg.Query.InLimit),
		query.WithLanguage(lang),
		query.WithLogger(log),
	)
	imports := importer.NewResultImportService(records, nil, bus, log)

	engine, err := router.NewEngine(router.EngineConfig{
		CORS: middleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
			AllowMethods:  cfg.HTTP.CORSAllowMethods,
			AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders: []string{middleware.HeaderRequestID, middleware.HeaderSessionID},
			MaxAge:        12 * time.Hour,
		},
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tp.IsEnabled(),
		},
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Meter:          meter,
	}, log)
	if err != nil {
		log.Fatal("Failed to configure HTTP engine", zap.Error(err))
	}

	h := router.Handlers{
		Health: handler.NewHealthHandler(registry, checks),
		Filter: handler.NewFilterHandler(),
		Form:   handler.NewFormHandler(),
		List:   handler.NewListHandler(composer),
		Import: handler.NewImportHandler(imports, cfg.HTTP.MaxBodySize),
		Public: handler.NewPublicHandler(records),
	}
	router.NewRouter(engine).
		Register(router.APIGroups(h, middleware.Session(registry))...).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully", zap.Int("sessions", registry.Len()))
}
