package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-api/internal/metrics"
	"github.com/i474232898/weather-forecast-api/internal/weather"
)

// DefaultTTL is how long an entry stays valid when no TTL is configured.
const DefaultTTL = 300 * time.Second

// Ensure Cache implements weather.Cache
var _ weather.Cache = (*Cache)(nil)

// Entries are stored as an 8-byte big-endian timestamp (unix nanoseconds)
// followed by the raw payload.
const headerSize = 8

var errShortEntry = errors.New("cache entry shorter than its header")

type entry struct {
	Data     []byte
	StoredAt int64 // unix nanoseconds
}

// maxShards is the shard count of an unbounded cache.
const maxShards = 16

// Cache is the process-local forecast tier. Entries expire lazily on Get once they
// are older than the TTL; CleanupExpired sweeps the rest.
//
// Storage is sharded and lock-protected by bigcache, so a Cache is safe for
// concurrent use.
type Cache struct {
	store  *bigcache.BigCache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Cache. ttl <= 0 falls back to DefaultTTL; maxSizeMB <= 0 means unbounded.
func New(ttl time.Duration, maxSizeMB int, logger *zap.Logger) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = shardsFor(maxSizeMB)
	cfg.MaxEntriesInWindow = 256
	cfg.MaxEntrySize = 8 * 1024
	cfg.CleanWindow = 0 // sweeping is driven by CleanupExpired
	cfg.Verbose = false
	if maxSizeMB > 0 {
		cfg.HardMaxCacheSize = maxSizeMB
	}

	store, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	return &Cache{
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}, nil
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the payload for key if it is present and not older than the TTL.
func (c *Cache) Get(key string) (weather.Payload, bool) {
	raw, err := c.store.Get(key)
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			c.logger.Warn("ephemeral cache get error", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	e, err := decode(raw)
	if err != nil {
		c.logger.Warn("failed to decode ephemeral cache entry", zap.String("key", key), zap.Error(err))
		_ = c.store.Delete(key)
		return nil, false
	}
	if c.expired(e) {
		_ = c.store.Delete(key)
		return nil, false
	}
	return weather.Payload(e.Data), true
}

// Set stores payload under key, stamped with the current time.
func (c *Cache) Set(key string, payload weather.Payload) {
	data := encode(entry{Data: payload, StoredAt: c.now().UnixNano()})
	if err := c.store.Set(key, data); err != nil {
		c.logger.Error("failed to set ephemeral cache entry", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes key if present.
func (c *Cache) Invalidate(key string) {
	_ = c.store.Delete(key)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	if err := c.store.Reset(); err != nil {
		c.logger.Error("failed to clear ephemeral cache", zap.Error(err))
	}
}

// CleanupExpired removes all entries older than the TTL and returns how many were removed.
func (c *Cache) CleanupExpired() int {
	var expired []string

	it := c.store.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}
		e, err := decode(info.Value())
		if err != nil || c.expired(e) {
			expired = append(expired, info.Key())
		}
	}

	removed := 0
	for _, key := range expired {
		if err := c.store.Delete(key); err == nil {
			removed++
		}
	}

	metrics.RecordEphemeralSwept(removed)
	metrics.UpdateEphemeralEntries(c.store.Len())
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	return c.store.Len()
}

// Close releases the underlying storage.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) expired(e entry) bool {
	return c.now().Sub(time.Unix(0, e.StoredAt)) > c.ttl
}

// shardsFor returns the shard count for a size bound. bigcache splits the bound
// evenly across shards and rejects entries larger than one shard, so a bounded
// cache keeps at least 1 MB per shard. The count stays a power of two.
func shardsFor(maxSizeMB int) int {
	if maxSizeMB <= 0 {
		return maxShards
	}
	shards := 1
	for shards*2 <= maxSizeMB && shards*2 <= maxShards {
		shards *= 2
	}
	return shards
}

func encode(e entry) []byte {
	buf := make([]byte, headerSize+len(e.Data))
	binary.BigEndian.PutUint64(buf, uint64(e.StoredAt))
	copy(buf[headerSize:], e.Data)
	return buf
}

// decode copies the payload out; bigcache may reuse the returned buffer.
func decode(raw []byte) (entry, error) {
	if len(raw) < headerSize {
		return entry{}, errShortEntry
	}
	data := make([]byte, len(raw)-headerSize)
	copy(data, raw[headerSize:])
	return entry{
		Data:     data,
		StoredAt: int64(binary.BigEndian.Uint64(raw)),
	}, nil
}
