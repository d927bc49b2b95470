package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/nitro-repo/nitro-repo/pkg/api"
	"github.com/nitro-repo/nitro-repo/pkg/audit"
	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/config"
	"github.com/nitro-repo/nitro-repo/pkg/httputil"
	"github.com/nitro-repo/nitro-repo/pkg/identity"
	"github.com/nitro-repo/nitro-repo/pkg/indexing"
	"github.com/nitro-repo/nitro-repo/pkg/middleware"
	"github.com/nitro-repo/nitro-repo/pkg/observability"
	"github.com/nitro-repo/nitro-repo/pkg/protocol/maven"
	"github.com/nitro-repo/nitro-repo/pkg/protocol/npm"
	"github.com/nitro-repo/nitro-repo/pkg/registry"
	"github.com/nitro-repo/nitro-repo/pkg/sso"
	"github.com/nitro-repo/nitro-repo/pkg/staging"
	"github.com/nitro-repo/nitro-repo/pkg/storage"
	"github.com/nitro-repo/nitro-repo/pkg/swagger"
)

const defaultStorageName = "default"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting nitro-repo")

	db, err := sql.Open("postgres", cfg.Catalog.DSN)
	if err != nil {
		logger.WithError(err).Error("failed to open catalog database")
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.Catalog.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Catalog.MaxIdleConns)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		logger.WithError(err).Error("failed to reach catalog database")
		os.Exit(1)
	}
	cat := catalog.New(db)

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable, authorization cache disabled")
			redisClient = nil
		}
	}

	if err := ensureDefaultStorage(ctx, cat, cfg.DefaultStorage); err != nil {
		logger.WithError(err).Error("failed to seed default storage")
		os.Exit(1)
	}

	sessions, err := identity.OpenSessionStore(cfg.Session.DatabasePath)
	if err != nil {
		logger.WithError(err).Error("failed to open session store")
		os.Exit(1)
	}

	tokens := identity.NewTokenIssuer(cat)
	authz := identity.NewAuthorizer(cat, redisClient, cfg.Redis.CacheTTL)
	authn := identity.NewAuthenticator(cat, tokens, sessions)

	stagingMgr, err := staging.NewManager(cfg.Staging.Root)
	if err != nil {
		logger.WithError(err).Error("failed to open staging area")
		os.Exit(1)
	}

	reg, err := registry.New(cat, logger, cfg.Registry.NameCacheSize)
	if err != nil {
		logger.WithError(err).Error("failed to build repository registry")
		os.Exit(1)
	}

	pipeline := indexing.NewPipeline(cat, logger)
	reg.RegisterFactory(catalog.RepositoryTypeMaven, maven.NewFactory(authn, authz, pipeline))
	reg.RegisterFactory(catalog.RepositoryTypeNpm, npm.NewFactory(authn, authz, tokens, pipeline))

	if err := reg.LoadAll(ctx); err != nil {
		logger.WithError(err).Error("failed to load repositories")
		os.Exit(1)
	}

	auditLogger, err := audit.NewDBLogger(db)
	if err != nil {
		logger.WithError(err).Error("failed to open audit logger")
		os.Exit(1)
	}
	auditStore := audit.NewDBStore(auditLogger)

	ssoHandlers := sso.NewHandlers(db, cat, cfg.Server.BaseURL)

	apiServer := api.NewServer(api.Config{
		Catalog:    cat,
		Registry:   reg,
		Authn:      authn,
		Authz:      authz,
		Tokens:     tokens,
		Sessions:   sessions,
		Staging:    stagingMgr,
		Logger:     logger,
		Audit:      auditLogger,
		AuditStore: auditStore,
		SSO:        ssoHandlers,
		SessionTTL: int64((24 * time.Hour).Seconds()),
	})

	docs := mux.NewRouter()
	swagger.NewSwaggerHandlers().RegisterRoutes(docs)

	root := &rootHandler{
		repositories: newRepositoryRouter(reg),
		api:          apiServer,
		docs:         docs,
	}

	metricsRegistry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(metricsRegistry)

	// Rate limiting falls back to IP-keyed buckets for routes whose auth
	// middleware hasn't resolved a Principal onto the request context yet
	// (the maven/npm protocol handlers authenticate internally, past this
	// point); it still bounds anonymous and per-user traffic hitting the
	// process. Redis-backed when available so limits hold across replicas,
	// in-memory otherwise.
	var rateLimit func(http.Handler) http.Handler
	if redisClient != nil {
		rateLimit = middleware.NewDistributedRateLimitMiddleware(redisClient).Handler
	} else {
		inMemoryLimiter := middleware.NewRateLimitMiddleware()
		inMemoryLimiter.StartCleanup(ctx)
		rateLimit = inMemoryLimiter.Handler
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      httputil.RecoveryMiddleware(observability.HTTPMetricsMiddleware(metrics)(rateLimit(root))),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var storagePingers []observability.Pinger
	for _, backend := range reg.Backends() {
		if p, ok := backend.(observability.Pinger); ok {
			storagePingers = append(storagePingers, p)
		}
	}
	healthChecker := observability.NewHealthChecker(db, redisClient, storagePingers...)
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, healthChecker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, metricsRegistry)
		logger.Info("metrics endpoint enabled")
	}

	healthServer := &http.Server{
		Addr:         ":" + cfg.Server.HealthPort,
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 5m", func() {
		n, err := sessions.DeleteExpired(context.Background())
		if err != nil {
			logger.WithError(err).Warn("session cleanup failed")
			return
		}
		if n > 0 {
			logger.WithField("count", n).Info("expired sessions swept")
		}
	}); err != nil {
		logger.WithError(err).Error("failed to schedule session cleanup")
		os.Exit(1)
	}
	sweepSpec := fmt.Sprintf("@every %s", cfg.Staging.SweepInterval)
	if _, err := sweeper.AddFunc(sweepSpec, func() {
		n, err := stagingMgr.Sweep(context.Background(), cfg.Staging.TTL)
		if err != nil {
			logger.WithError(err).Warn("staging sweep failed")
			return
		}
		if n > 0 {
			logger.WithField("count", n).Info("abandoned stages swept")
		}
	}); err != nil {
		logger.WithError(err).Error("failed to schedule staging sweep")
		os.Exit(1)
	}
	if _, err := sweeper.AddFunc("@every 5m", func() {
		n, err := ssoHandlers.CleanupExpiredSessions()
		if err != nil {
			logger.WithError(err).Warn("sso session cleanup failed")
			return
		}
		if n > 0 {
			logger.WithField("count", n).Info("expired sso sessions swept")
		}
	}); err != nil {
		logger.WithError(err).Error("failed to schedule sso session cleanup")
		os.Exit(1)
	}
	sweeper.Start()

	shutdownManager := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		logger.Info("stopping scheduled sweeps")
		<-sweeper.Stop().Done()
		return nil
	})
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		logger.Info("shutting down health server")
		return healthServer.Shutdown(ctx)
	})
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		return sessions.Close()
	})
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		return db.Close()
	})
	if redisClient != nil {
		shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}

	go func() {
		logger.Infof("starting health/metrics server on port %s", cfg.Server.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	go func() {
		logger.Infof("starting nitro-repo server on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http server failed")
			os.Exit(1)
		}
	}()

	logger.Info("server started, waiting for shutdown signal")
	if err := shutdownManager.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// ensureDefaultStorage creates the "default" Storage row from the
// environment-configured backend on first boot, the same bootstrap step
// the original installer performed interactively. Later Storage rows are
// created through the admin API and carry their own config documents.
func ensureDefaultStorage(ctx context.Context, cat *catalog.Catalog, cfg storage.Config) error {
	_, err := cat.GetStorageByName(ctx, defaultStorageName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return fmt.Errorf("looking up default storage: %w", err)
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding default storage config: %w", err)
	}

	s := &catalog.Storage{
		Name:   defaultStorageName,
		Kind:   string(cfg.Kind),
		Config: raw,
		Active: true,
	}
	if err := cat.CreateStorage(ctx, s); err != nil {
		return fmt.Errorf("creating default storage: %w", err)
	}
	return nil
}
