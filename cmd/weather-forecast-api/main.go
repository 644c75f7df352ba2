package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-forecast-api/internal/api/http"
	"github.com/i474232898/weather-forecast-api/internal/cache"
	"github.com/i474232898/weather-forecast-api/internal/config"
	"github.com/i474232898/weather-forecast-api/internal/logging"
	"github.com/i474232898/weather-forecast-api/internal/scheduler"
	"github.com/i474232898/weather-forecast-api/internal/store"
	"github.com/i474232898/weather-forecast-api/internal/weather"
	"github.com/i474232898/weather-forecast-api/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ephemeral tier.
	forecastCache, err := cache.New(cfg.CacheTTL, cfg.CacheMaxSizeMB, logger)
	if err != nil {
		logger.Fatal("failed to create forecast cache", zap.Error(err))
	}
	defer forecastCache.Close()

	// Durable tier.
	backend, err := newBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to create durable store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	forecastStore := store.New(backend, cfg.StoreTimeout, logger)
	defer forecastStore.Close()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	fetcher := providers.NewOpenWeatherFetcher(httpClient, cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.FetchMaxRetries, logger)

	service := weather.NewService(forecastCache, forecastStore, fetcher, logger)

	// Background jobs.
	sched := scheduler.New(logger)
	if err := sched.ScheduleSweep(cfg.CacheCleanupInterval, forecastCache); err != nil {
		logger.Fatal("failed to schedule cache sweep", zap.Error(err))
	}
	if err := sched.ScheduleWarmUp(cfg.WarmInterval, cfg.WarmLocations, service); err != nil {
		logger.Fatal("failed to schedule warm-up", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.Options{
		Service:              service,
		Logger:               logger,
		SlowRequestThreshold: cfg.SlowRequestThreshold,
	})

	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.Port),
			zap.String("store_backend", cfg.StoreBackend),
			zap.Duration("cache_ttl", cfg.CacheTTL))
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
			stop()
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newBackend(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (store.Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		client, err := store.NewDynamoClient(ctx, store.DynamoConfig{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoDBURL,
			AccessKeyID:     cfg.AWSAccessKey,
			SecretAccessKey: cfg.AWSSecretKey,
		})
		if err != nil {
			return nil, err
		}
		return store.NewDynamoBackend(client, cfg.ForecastTable), nil
	case config.BackendRedis:
		client, err := store.NewRedisClient(ctx, cfg.RedisURL, cfg.StoreTimeout, logger)
		if err != nil {
			return nil, err
		}
		return store.NewRedisBackend(client), nil
	case config.BackendMemory:
		logger.Warn("using in-memory durable store; forecasts will not survive a restart")
		return store.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
