package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-api/internal/metrics"
	"github.com/i474232898/weather-forecast-api/internal/weather"
)

// RecordTTL is the lifetime of a persisted forecast.
const RecordTTL = time.Hour

// DefaultTimeout bounds a single backend call when none is configured.
const DefaultTimeout = 5 * time.Second

var (
	// ErrNotFound is returned by a Backend when no record exists for a key.
	ErrNotFound = errors.New("forecast record not found")

	errInvalidPayload = errors.New("payload is not valid JSON")
)

// Ensure ForecastStore implements weather.Store
var _ weather.Store = (*ForecastStore)(nil)

// Record is the persisted form of a forecast.
type Record struct {
	Key       string    `json:"location_key" dynamodbav:"location_key"`
	Payload   string    `json:"forecast_data" dynamodbav:"forecast_data"`
	WrittenAt time.Time `json:"timestamp" dynamodbav:"timestamp"`
	ExpiresAt int64     `json:"ttl" dynamodbav:"ttl"` // unix seconds
}

// Expired reports whether the record is dead at now.
func (r Record) Expired(now time.Time) bool {
	return now.Unix() >= r.ExpiresAt
}

// Backend is a key-value service with per-item expiry. Backends may reap expired
// records lazily; readers never rely on it.
type Backend interface {
	GetRecord(ctx context.Context, key string) (Record, error)
	PutRecord(ctx context.Context, record Record) error
	Close() error
}

// ForecastStore persists forecasts beyond the process lifetime. Backend failures
// are logged and degrade to a miss; they never reach the caller as errors.
type ForecastStore struct {
	backend Backend
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// New wraps backend. timeout <= 0 falls back to DefaultTimeout.
func New(backend Backend, timeout time.Duration, logger *zap.Logger) *ForecastStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ForecastStore{
		backend: backend,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// StoreForecast writes payload under key with an expiry of RecordTTL from now.
// It returns false on any failure.
func (s *ForecastStore) StoreForecast(ctx context.Context, key weather.Key, payload weather.Payload) bool {
	if !json.Valid(payload) {
		s.logger.Error("refusing to store forecast", zap.String("key", key.String()), zap.Error(errInvalidPayload))
		metrics.RecordDurableOperation("put", "error")
		return false
	}

	now := s.now().UTC()
	record := Record{
		Key:       key.String(),
		Payload:   string(payload),
		WrittenAt: now,
		ExpiresAt: now.Add(RecordTTL).Unix(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.backend.PutRecord(ctx, record); err != nil {
		s.logger.Error("error storing forecast", zap.String("key", record.Key), zap.Error(err))
		metrics.RecordDurableOperation("put", "error")
		return false
	}

	metrics.RecordDurableOperation("put", "ok")
	return true
}

// GetForecast looks up key. Expired records are reported as a miss even when the
// backend still holds them.
func (s *ForecastStore) GetForecast(ctx context.Context, key weather.Key) weather.Result {
	k := key.String()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	record, err := s.backend.GetRecord(ctx, k)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordDurableOperation("get", "miss")
			return weather.Miss()
		}
		s.logger.Error("error retrieving forecast", zap.String("key", k), zap.Error(err))
		metrics.RecordDurableOperation("get", "error")
		return weather.Failure(err)
	}

	if record.Expired(s.now()) {
		metrics.RecordDurableOperation("get", "miss")
		return weather.Miss()
	}

	if !json.Valid([]byte(record.Payload)) {
		err := fmt.Errorf("record %s: %w", k, errInvalidPayload)
		s.logger.Error("error decoding forecast", zap.String("key", k), zap.Error(err))
		metrics.RecordDurableOperation("get", "error")
		return weather.Failure(err)
	}

	metrics.RecordDurableOperation("get", "hit")
	return weather.Hit(weather.Payload(record.Payload))
}

// Close releases the backend.
func (s *ForecastStore) Close() error {
	return s.backend.Close()
}
