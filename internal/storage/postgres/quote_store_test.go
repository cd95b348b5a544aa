package postgres

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

func TestQuoteStore_InsertConsume(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	seedStreamerWithCard(t, ctx, pool, "s-1", "c-1")

	store := NewQuoteStore(pool)

	q := &domain.PriceQuote{ID: "q-1", CardID: "c-1", PriceLamports: 5_500_000, Signature: "ab", ExpiresAt: 2000, CreatedAt: 1000}
	require.NoError(t, store.Insert(ctx, q))
	assert.ErrorIs(t, store.Insert(ctx, q), storage.ErrDuplicateKey)

	got, err := store.GetByID(ctx, "q-1")
	require.NoError(t, err)
	assert.Equal(t, q.PriceLamports, got.PriceLamports)
	assert.Equal(t, q.Signature, got.Signature)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Consume(ctx, "q-1") == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestQuoteStore_DeleteExpired(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	seedStreamerWithCard(t, ctx, pool, "s-1", "c-1")

	store := NewQuoteStore(pool)
	require.NoError(t, store.Insert(ctx, &domain.PriceQuote{ID: "old", CardID: "c-1", ExpiresAt: 100}))
	require.NoError(t, store.Insert(ctx, &domain.PriceQuote{ID: "new", CardID: "c-1", ExpiresAt: 900}))

	n, err := store.DeleteExpired(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetByID(ctx, "new")
	assert.NoError(t, err)
}

func TestMintStore_ActivityWindow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	seedStreamerWithCard(t, ctx, pool, "s-1", "c-1")

	store := NewMintStore(pool)

	m := &domain.MintRecord{ID: "m-1", CardID: "c-1", QuoteID: "q-1", OwnerPubkey: "owner", PaymentProof: "proof", PriceLamports: 1, Edition: 1, CreatedAt: 1}
	require.NoError(t, store.Insert(ctx, m))
	assert.ErrorIs(t, store.Insert(ctx, m), storage.ErrDuplicateKey)

	for _, at := range []int64{100, 200, 300} {
		require.NoError(t, store.AppendActivity(ctx, domain.MintActivity{CardID: "c-1", MintedAt: at}))
	}

	counts, err := store.CountActivitySince(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["c-1"])

	n, err := store.DeleteActivityBefore(ctx, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
