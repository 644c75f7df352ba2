package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_PutAndGet(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()

	r := Record{Key: "1_2_metric", Payload: `{"a":1}`, ExpiresAt: time.Now().Add(time.Hour).Unix()}
	require.NoError(t, m.PutRecord(ctx, r))

	got, err := m.GetRecord(ctx, "1_2_metric")
	require.NoError(t, err)
	assert.Equal(t, r, got)

	_, err = m.GetRecord(ctx, "3_4_metric")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackend_ReapsExpiredOnWrite(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.PutRecord(ctx, Record{Key: "old", ExpiresAt: now.Add(time.Minute).Unix()}))

	now = now.Add(2 * time.Minute)

	// still physically present until the next write
	_, err := m.GetRecord(ctx, "old")
	require.NoError(t, err)

	require.NoError(t, m.PutRecord(ctx, Record{Key: "new", ExpiresAt: now.Add(time.Hour).Unix()}))

	_, err = m.GetRecord(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryBackend_CancelledContext(t *testing.T) {
	m := NewMemoryBackend()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.PutRecord(ctx, Record{Key: "k"}), context.Canceled)
	_, err := m.GetRecord(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
