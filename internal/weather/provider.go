package weather

import (
	"context"
)

//go:generate mockgen -package=mock -source=provider.go -destination=mock/provider.go

// Cache is the process-local tier consulted first.
type Cache interface {
	Get(key string) (Payload, bool)
	Set(key string, payload Payload)
}

// Store is the durable tier. Failures are reported through Result, never raised.
type Store interface {
	GetForecast(ctx context.Context, key Key) Result
	StoreForecast(ctx context.Context, key Key, payload Payload) bool
}

// Fetcher retrieves a fresh document from the upstream provider.
type Fetcher interface {
	Fetch(ctx context.Context, key Key, opts FetchOptions) Result
}
