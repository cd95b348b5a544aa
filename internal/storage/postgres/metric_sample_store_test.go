package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpcards/internal/domain"
)

func TestMetricSampleStore_AppendAndRolling(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMetricSampleStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, nil))

	require.NoError(t, store.Append(ctx, []*domain.MetricSample{
		{StreamerID: "s-1", Timestamp: 1000, Viewers: 1000, GasSpent: 1.5, Donations: 0.5, Volume: 10, Holders: 40},
		{StreamerID: "s-1", Timestamp: 2000, Viewers: 3000, GasSpent: 2.5, Donations: 1.5, Volume: 20, Holders: 90},
		{StreamerID: "s-1", Timestamp: 500, Viewers: 50000, GasSpent: 99, Holders: 999},
	}))

	got, err := store.Rolling(ctx, "s-1", 500)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SampleCount)
	assert.InDelta(t, 2000.0, got.AvgViewers, 1e-9)
	assert.InDelta(t, 4.0, got.GasSum, 1e-9)
	assert.InDelta(t, 2.0, got.DonationsSum, 1e-9)
	assert.InDelta(t, 30.0, got.VolumeSum, 1e-9)
	assert.Equal(t, int64(90), got.MaxHolders)

	empty, err := store.Rolling(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.SampleCount)
	assert.Zero(t, empty.AvgViewers)
}
