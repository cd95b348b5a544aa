package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpcards/internal/storage"
)

func TestCache_PutGetList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	cache := NewCache(pool)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "surge:c-2", []byte(`{"multiplier":1.2}`), time.Hour))
	require.NoError(t, cache.Put(ctx, "surge:c-1", []byte(`{"multiplier":1.1}`), time.Hour))
	require.NoError(t, cache.Put(ctx, "tier_upgrade:s-1", []byte(`[]`), time.Hour))

	got, err := cache.Get(ctx, "surge:c-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"multiplier":1.1}`, string(got))

	keys, err := cache.ListByPrefix(ctx, "surge:")
	require.NoError(t, err)
	assert.Equal(t, []string{"surge:c-1", "surge:c-2"}, keys)

	require.NoError(t, cache.Delete(ctx, "surge:c-1"))
	_, err = cache.Get(ctx, "surge:c-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCache_Expiry(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	cache := NewCache(pool)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "surge:c-1", []byte("x"), 50*time.Millisecond))
	time.Sleep(100 * time.Millisecond)

	_, err := cache.Get(ctx, "surge:c-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	n, err := cache.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLeaseStore_TryAcquire(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLeaseStore(pool)
	ctx := context.Background()

	ok, err := store.TryAcquire(ctx, "discovery", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TryAcquire(ctx, "discovery", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, "discovery", "a"))

	ok, err = store.TryAcquire(ctx, "discovery", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
