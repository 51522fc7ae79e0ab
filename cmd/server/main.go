package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	applimits "github.com/bizcore/backend/internal/application/limits"
	"github.com/bizcore/backend/internal/infrastructure/auth"
	"github.com/bizcore/backend/internal/infrastructure/auditsink"
	"github.com/bizcore/backend/internal/infrastructure/cache"
	"github.com/bizcore/backend/internal/infrastructure/config"
	"github.com/bizcore/backend/internal/infrastructure/logger"
	"github.com/bizcore/backend/internal/infrastructure/persistence"
	"github.com/bizcore/backend/internal/infrastructure/persistence/capture"
	"github.com/bizcore/backend/internal/infrastructure/persistence/tenant"
	"github.com/bizcore/backend/internal/infrastructure/storage"
	"github.com/bizcore/backend/internal/infrastructure/telemetry"
	"github.com/bizcore/backend/internal/interfaces/http/handler"
	"github.com/bizcore/backend/internal/interfaces/http/middleware"
	"github.com/bizcore/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "github.com/bizcore/backend/docs"
)

//	@title			BizCore Backend API
//	@version		1.0
//	@description	Multi-tenant business backend with row-level tenant isolation and a transactional audit trail.

//	@contact.name	API Support
//	@contact.url	https://github.com/bizcore/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(cfg.Log)
	defer logger.Sync(log)

	log.Info("Starting BizCore Backend",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
		zap.String("version", version),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Telemetry comes up first so everything below can be instrumented.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Name, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, cfg.App.Name, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, cfg.App.Name, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		// All log entries from here on go to stdout and the collector.
		log = telemetry.BridgeLogger(log,
			loggerProvider.ZapCore(cfg.App.Name, logger.ParseLevel(cfg.Log.Level)))
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, cfg.App.Name, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}
	auditMetrics, err := telemetry.NewAuditMetrics(meterProvider.Meter("bizcore/audit"), log)
	if err != nil {
		log.Fatal("Failed to initialize audit metrics", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	if cfg.Telemetry.Enabled {
		if err := db.EnableTracing(); err != nil {
			log.Fatal("Failed to enable database tracing", zap.Error(err))
		}
	}

	// Audit pipeline: deferred sink buffers inside transactions, immediate
	// sink writes straight through for events that must survive rollbacks.
	eventRepo := persistence.NewGormAuditEventRepository(db.DB)
	deferredSink := telemetry.InstrumentSink(auditsink.NewDeferredSink(eventRepo, log), auditMetrics)
	immediateSink := telemetry.InstrumentSink(auditsink.NewImmediateSink(eventRepo, log), auditMetrics)
	db.SetAuditWriter(eventRepo, log)

	recorder := appaudit.NewRecorder(deferredSink, immediateSink)

	enforcer := tenant.NewEnforcer().OnDenied(func(ctx context.Context, table string, attempted uuid.UUID) {
		auditMetrics.IsolationDenied(ctx, table)
		recorder.IsolationDenied(ctx, table, attempted, appaudit.RequestMeta{})
	})
	if err := db.EnableIsolation(enforcer); err != nil {
		log.Fatal("Failed to enable tenant isolation", zap.Error(err))
	}

	registry := capture.NewRegistry()
	capturer := capture.NewCapturer(registry, deferredSink, log)
	if err := db.EnableCapture(capturer); err != nil {
		log.Fatal("Failed to enable change capture", zap.Error(err))
	}

	limitsCache, err := cache.NewRedisLimitsCache(cfg.Redis, cfg.Audit.CacheTTL, log)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer func() {
		if err := limitsCache.Close(); err != nil {
			log.Error("Failed to close limits cache", zap.Error(err))
		}
	}()

	jwtService := auth.NewJWTService(cfg.JWT)
	blacklist, err := auth.NewRedisTokenBlacklist(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect token blacklist", zap.Error(err))
	}
	defer func() {
		if err := blacklist.Close(); err != nil {
			log.Error("Failed to close token blacklist", zap.Error(err))
		}
	}()

	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	subRepo := persistence.NewGormSubscriptionRepository(db.DB)
	itemRepo := persistence.NewGormItemRepository(db.DB)

	limitsService := applimits.NewService(subRepo, userRepo, limitsCache, recorder, log)

	archiverDone := startArchiver(ctx, cfg, eventRepo, log)
	defer close(archiverDone)

	handlers := router.Handlers{
		Auth:    handler.NewAuthHandler(tenantRepo, userRepo, jwtService, blacklist, recorder),
		Audit:   handler.NewAuditHandler(appaudit.NewQueryService(eventRepo)),
		Limits:  handler.NewLimitsHandler(limitsService),
		Users:   handler.NewUserHandler(db, userRepo, limitsService, recorder, jwtService),
		Tenants: handler.NewTenantHandler(db, tenantRepo),
		Items:   handler.NewItemHandler(db, itemRepo),
		System:  handler.NewSystemHandler(db, version),
	}

	httpMetrics, err := middleware.NewHTTPMetrics(meterProvider)
	if err != nil {
		log.Fatal("Failed to initialize http metrics", zap.Error(err))
	}

	rateLimiter := middleware.NewRateLimiter(300, time.Minute)
	defer rateLimiter.Stop()

	engine := router.New(router.Config{
		Logger:           log,
		JWT:              jwtService,
		Blacklist:        blacklist,
		ServiceName:      cfg.App.Name,
		TracingEnabled:   cfg.Telemetry.Enabled,
		ProfilingEnabled: profiler.IsEnabled(),
		HTTPMetrics:      httpMetrics,
		BodyLimitBytes:   4 << 20,
		RateLimiter:      rateLimiter,
		CORS:             middleware.DefaultCORSConfig(),
		Swagger:          middleware.SwaggerConfig{Enabled: !cfg.IsProduction()},
	}, handlers)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Profiler shutdown failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Logger provider shutdown failed", zap.Error(err))
	}

	log.Info("Shutdown complete")
}

// startArchiver runs the audit archive job daily when archiving is enabled.
// The returned channel stops the loop when closed.
func startArchiver(ctx context.Context, cfg *config.Config, events *persistence.GormAuditEventRepository, log *zap.Logger) chan struct{} {
	done := make(chan struct{})
	if !cfg.Audit.ArchiveEnabled {
		return done
	}

	store, err := storage.NewS3ObjectStore(cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object store", zap.Error(err))
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatal("Failed to ensure archive bucket", zap.Error(err))
	}
	archiver, err := storage.NewArchiver(events, store, cfg.Audit.ArchivePrefix, cfg.Audit.RetentionPeriod, log)
	if err != nil {
		log.Fatal("Failed to initialize archiver", zap.Error(err))
	}

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
				archived, err := archiver.Run(runCtx)
				cancel()
				if err != nil {
					log.Error("Audit archive run failed", zap.Error(err))
					continue
				}
				log.Info("Audit archive run complete", zap.Int("events", archived))
			}
		}
	}()

	return done
}
