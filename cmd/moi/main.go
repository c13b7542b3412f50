package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/monsters-of-interest/moi-api/internal/app"
	"github.com/monsters-of-interest/moi-api/internal/auth"
	"github.com/monsters-of-interest/moi-api/internal/characters"
	"github.com/monsters-of-interest/moi-api/internal/observability"
	"github.com/monsters-of-interest/moi-api/internal/platform/cache"
	"github.com/monsters-of-interest/moi-api/internal/platform/db"
	"github.com/monsters-of-interest/moi-api/internal/rbac"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	dbpool, err := db.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.DBRunMigrations {
		if err := db.Migrate(ctx, dbpool); err != nil {
			logger.Error("run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, character cache disabled", slog.Any("error", err))
			redisClient = nil
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
		}
	}

	metrics := observability.NewMetrics()

	hasher, err := auth.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		logger.Error("password hasher", slog.Any("error", err))
		os.Exit(1)
	}
	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTTTL, cfg.JWTIssuer)
	authService := auth.NewService(auth.NewRepository(dbpool), hasher, tokens)

	characterRepo := characters.NewCachedRepository(
		characters.NewRepository(dbpool), redisClient, cfg.CharacterCacheTTL, logger, metrics.Registerer())
	characterService := characters.NewService(characterRepo, characters.NewRandomBuilder(nil, nil))

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		DB:               dbpool,
		AuthHandler:      auth.NewHandler(logger, authService),
		CharacterHandler: characters.NewHandler(logger, characterService),
		Gate:             auth.NewGate(logger, tokens, metrics.Registerer()),
		RBACMiddleware:   rbac.Middleware{Logger: logger},
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// The pool is closed by the deferred Close only after in-flight requests drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
