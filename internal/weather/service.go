package weather

import (
	"context"

	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-api/internal/metrics"
)

// Service answers forecast lookups through the ephemeral cache, the durable store
// and finally the upstream provider, backfilling the faster tiers on the way out.
//
// Concurrent misses for the same key are not coalesced; each one reaches the fetcher.
type Service struct {
	cache   Cache
	store   Store
	fetcher Fetcher
	logger  *zap.Logger
}

// NewService creates a new Service.
func NewService(cache Cache, store Store, fetcher Fetcher, logger *zap.Logger) *Service {
	return &Service{
		cache:   cache,
		store:   store,
		fetcher: fetcher,
		logger:  logger,
	}
}

// GetForecast returns the forecast for key or ErrNotFound when no tier has it.
func (s *Service) GetForecast(ctx context.Context, key Key, opts FetchOptions) (Payload, error) {
	cacheKey := key.String()

	if payload, ok := s.cache.Get(cacheKey); ok {
		metrics.RecordForecastLookup(metrics.SourceEphemeral)
		return payload, nil
	}

	stored := s.store.GetForecast(ctx, key)
	switch stored.Outcome {
	case OutcomeHit:
		s.cache.Set(cacheKey, stored.Payload)
		metrics.RecordForecastLookup(metrics.SourceDurable)
		return stored.Payload, nil
	case OutcomeFailure:
		s.logger.Warn("durable store unavailable; falling through to upstream",
			zap.String("key", cacheKey), zap.Error(stored.Err))
	}

	payload, err := s.fetchAndBackfill(ctx, key, opts)
	if err != nil {
		metrics.RecordForecastLookup(metrics.SourceNotFound)
		return nil, err
	}
	metrics.RecordForecastLookup(metrics.SourceUpstream)
	return payload, nil
}

// Refresh fetches key from upstream regardless of cached state and writes it to both tiers.
func (s *Service) Refresh(ctx context.Context, key Key) error {
	_, err := s.fetchAndBackfill(ctx, key, FetchOptions{})
	return err
}

func (s *Service) fetchAndBackfill(ctx context.Context, key Key, opts FetchOptions) (Payload, error) {
	cacheKey := key.String()

	fetched := s.fetcher.Fetch(ctx, key, opts)
	if !fetched.OK() {
		s.logger.Info("no forecast available from upstream",
			zap.String("key", cacheKey),
			zap.Stringer("outcome", fetched.Outcome),
			zap.Error(fetched.Err))
		return nil, ErrNotFound
	}

	s.cache.Set(cacheKey, fetched.Payload)
	if !s.store.StoreForecast(ctx, key, fetched.Payload) {
		s.logger.Warn("forecast not persisted to durable store", zap.String("key", cacheKey))
	}
	return fetched.Payload, nil
}
