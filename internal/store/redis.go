package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

//go:generate mockgen -source=redis.go -destination=mock/redis_client.go -package=mock

// RedisClient is the subset of *redis.Client used by RedisBackend.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

const redisKeyPrefix = "forecast:"

// Ensure RedisBackend implements Backend
var _ Backend = (*RedisBackend)(nil)

// RedisBackend stores records in Redis/KeyDB with a server-side expiry matching the record's.
type RedisBackend struct {
	client RedisClient
	now    func() time.Time
}

// NewRedisClient connects to the server at redisURL (redis://[:password@]host:port/db).
func NewRedisClient(ctx context.Context, redisURL string, timeout time.Duration, logger *zap.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	logger.Info("connected to Redis", zap.String("address", opts.Addr), zap.Int("db", opts.DB))
	return client, nil
}

// NewRedisBackend creates a RedisBackend over client.
func NewRedisBackend(client RedisClient) *RedisBackend {
	return &RedisBackend{client: client, now: time.Now}
}

// PutRecord writes record with an expiration equal to its remaining lifetime.
func (r *RedisBackend) PutRecord(ctx context.Context, record Record) error {
	ttl := time.Unix(record.ExpiresAt, 0).Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("record %s already expired", record.Key)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	return r.client.Set(ctx, redisKeyPrefix+record.Key, data, ttl).Err()
}

// GetRecord returns the record for key or ErrNotFound.
func (r *RedisBackend) GetRecord(ctx context.Context, key string) (Record, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("failed to decode record %s: %w", key, err)
	}
	return record, nil
}

// Close closes the client connection.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
