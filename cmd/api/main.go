// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/filedrive-app/filedrive/internal/admin"
	"github.com/filedrive-app/filedrive/internal/auth"
	"github.com/filedrive-app/filedrive/internal/config"
	"github.com/filedrive-app/filedrive/internal/core"
	"github.com/filedrive-app/filedrive/internal/favorite"
	"github.com/filedrive-app/filedrive/internal/file"
	"github.com/filedrive-app/filedrive/internal/health"
	"github.com/filedrive-app/filedrive/internal/middleware"
	"github.com/filedrive-app/filedrive/internal/org"
	"github.com/filedrive-app/filedrive/internal/server"
	"github.com/filedrive-app/filedrive/internal/storage"
	"github.com/filedrive-app/filedrive/internal/sweeper"
	"github.com/filedrive-app/filedrive/internal/user"
)

const (
	drainDelay        = 5 * time.Second
	sessionPurgeEvery = time.Hour
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	if err := core.Migrate(cfg.Database.URL, logger); err != nil {
		return err
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	blobStore, err := storage.NewDiskStore(cfg.Storage.Root)
	if err != nil {
		return err
	}
	logger.Info("blob store ready", "root", cfg.Storage.Root)

	uploadTokens := storage.NewUploadTokenManager(
		redis.Client,
		cfg.Storage.UploadTokenTTL,
	)

	storageHandler := storage.NewHandler(storage.HandlerConfig{
		Store:          blobStore,
		Tokens:         uploadTokens,
		PublicBaseURL:  cfg.Storage.PublicBaseURL,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	})

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(authRepo, jwtManager, userSvc, redis.Client, logger)
	authHandler := auth.NewHandler(authSvc)

	orgRepo := org.NewRepository(db.DB)
	orgSvc := org.NewService(db.DB, orgRepo)
	orgHandler := org.NewHandler(orgSvc)

	fileRepo := file.NewRepository(db.DB)
	fileSvc := file.NewService(
		fileRepo,
		orgSvc,
		blobStore,
		storageHandler.ObjectURL,
	)
	fileHandler := file.NewHandler(fileSvc)

	favRepo := favorite.NewRepository(db.DB)
	favSvc := favorite.NewService(favRepo, orgSvc, fileRepo)
	favHandler := favorite.NewHandler(favSvc)

	healthHandler := health.NewHandler(db, redis, blobStore)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DB:         db.DB,
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
	})

	purger := sweeper.New(
		fileRepo,
		blobStore,
		cfg.Sweeper.Interval,
		logger,
	)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())
	router.Handle("/metrics", promhttp.Handler())

	authenticator := middleware.Authenticator(authSvc)
	optionalAuth := middleware.OptionalAuth(authSvc)
	adminOnly := middleware.RequireAdmin

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)

		r.Post("/users", authHandler.Register)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		orgHandler.RegisterRoutes(r, authenticator)
		fileHandler.RegisterRoutes(r, authenticator, optionalAuth)
		favHandler.RegisterRoutes(r, authenticator, optionalAuth)
		storageHandler.RegisterRoutes(r, authenticator)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	if cfg.Sweeper.Enabled {
		purger.Start(ctx)
	}

	go purgeSessionsLoop(ctx, authSvc, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if cfg.Sweeper.Enabled {
		purger.Stop()
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// purgeSessionsLoop deletes long-expired refresh sessions on a slow
// cadence so the table does not grow without bound.
func purgeSessionsLoop(
	ctx context.Context,
	authSvc *auth.Service,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(sessionPurgeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := authSvc.PurgeExpiredSessions(ctx)
			if err != nil {
				logger.Error("session purge failed", "error", err)
				continue
			}
			if purged > 0 {
				logger.Info("purged expired sessions", "count", purged)
			}
		}
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
