package store

import (
	"context"
	"sync"
	"time"
)

// Ensure MemoryBackend implements Backend
var _ Backend = (*MemoryBackend)(nil)

// MemoryBackend is a concurrency-safe in-memory Backend. Expired records are reaped
// when new records are written, so reads may still see them.
type MemoryBackend struct {
	mu sync.RWMutex

	// key: location key, value: latest record
	data map[string]Record

	now func() time.Time
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string]Record),
		now:  time.Now,
	}
}

// PutRecord stores record, replacing any previous one, and reaps expired records.
func (m *MemoryBackend) PutRecord(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[record.Key] = record

	now := m.now()
	for key, r := range m.data {
		if r.Expired(now) {
			delete(m.data, key)
		}
	}
	return nil
}

// GetRecord returns the record for key or ErrNotFound.
func (m *MemoryBackend) GetRecord(ctx context.Context, key string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.data[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// Len returns the number of records held, including expired ones not yet reaped.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close is a no-op.
func (m *MemoryBackend) Close() error {
	return nil
}
