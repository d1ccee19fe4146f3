package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"couponme/api/internal/cache"
	"couponme/api/internal/config"
	"couponme/api/internal/database"
	"couponme/api/internal/handlers"
	"couponme/api/internal/i18n"
	"couponme/api/internal/jobs"
	"couponme/api/internal/log"
	"couponme/api/internal/metrics"
	"couponme/api/internal/payment"
	"couponme/api/internal/repository"
	"couponme/api/internal/repository/memory"
	"couponme/api/internal/server"
	"couponme/api/internal/service"
	"couponme/api/internal/storage"
	"couponme/api/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Log)

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Environment, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracing")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	stores, dbPool, checks, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.Store).Msg("failed to open store")
	}

	var markers service.EventMarker
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	switch {
	case errors.Is(err, cache.ErrRedisDisabled):
		logger.Warn().Msg("redis disabled, webhook events are not deduplicated")
	case err != nil:
		logger.Fatal().Err(err).Msg("failed to connect redis")
	default:
		markers = cache.NewEventMarker(redisClient, cfg.Payment.IdempotencyTTL)
		checks = append(checks, handlers.HealthCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	objectStore, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}
	var uploadsDir string
	if local, ok := objectStore.(*storage.LocalStore); ok {
		uploadsDir = local.Dir()
	}

	var provider payment.Provider
	if cfg.PaymentEnabled() {
		provider = payment.NewStripeProvider(cfg.Payment.SecretKey, cfg.Payment.WebhookSecret)
	} else {
		logger.Warn().Msg("payment secret key not set, membership checkout is unavailable")
	}

	translator, err := i18n.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load translations")
	}

	services := service.NewSet(cfg, stores, service.Infra{
		Objects:  objectStore,
		Provider: provider,
		Markers:  markers,
		Metrics:  m,
	}, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, services, translator, checks...)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet, server.Options{
		Metrics:    m,
		UploadsDir: uploadsDir,
	})

	scheduler := jobs.NewScheduler(cfg.Jobs, services.Auth, services.Uploads, m, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient, shutdownTracing)
}

// openStores returns the persistence backends for the configured driver. The
// pool is nil for the memory driver.
func openStores(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (service.Stores, *pgxpool.Pool, []handlers.HealthCheck, error) {
	if cfg.Store == config.StoreDriverMemory {
		store := memory.New()
		if _, err := database.SeedCategoryList(ctx, store.Categories()); err != nil {
			return service.Stores{}, nil, nil, err
		}
		if cfg.Bootstrap.AdminEmail != "" {
			if _, err := database.EnsureAdmin(ctx, store.Users(), cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminName); err != nil {
				return service.Stores{}, nil, nil, err
			}
		}
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return service.Stores{
			Users:      store.Users(),
			Sessions:   store.Sessions(),
			Categories: store.Categories(),
			Coupons:    store.Coupons(),
			Uploads:    store.Uploads(),
		}, nil, []handlers.HealthCheck{{Name: "store", Ping: store.Ping}}, nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return service.Stores{}, nil, nil, err
	}
	return service.Stores{
		Users:      repository.NewUserRepository(pool),
		Sessions:   repository.NewSessionRepository(pool),
		Categories: repository.NewCategoryRepository(pool),
		Coupons:    repository.NewCouponRepository(pool),
		Uploads:    repository.NewUploadRepository(pool),
	}, pool, []handlers.HealthCheck{{Name: "postgres", Ping: pool.Ping}}, nil
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client, shutdownTracing tracing.ShutdownFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("tracer shutdown error")
	}

	logger.Info().Msg("server exited cleanly")
}
