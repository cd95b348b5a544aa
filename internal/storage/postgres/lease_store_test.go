package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseStore_TryAcquireRelease(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLeaseStore(pool)

	ok, err := store.TryAcquire(ctx, "discovery", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TryAcquire(ctx, "discovery", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lease must not be taken by another owner")

	ok, err = store.TryAcquire(ctx, "discovery", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "holder can renew")

	require.NoError(t, store.Release(ctx, "discovery", "a"))
	ok, err = store.TryAcquire(ctx, "discovery", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLeaseStore_ExpiredLeaseIsTaken(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLeaseStore(pool)

	ok, err := store.TryAcquire(ctx, "refresh", "a", time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, err = store.TryAcquire(ctx, "refresh", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
