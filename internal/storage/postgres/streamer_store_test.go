package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

func TestStreamerStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStreamerStore(pool)
	ctx := context.Background()

	r := &domain.StreamerRecord{
		ID:           "s-001",
		Handle:       "PumpKing",
		TokenAddress: ptr("So11111111111111111111111111111111111111112"),
		Approved:     true,
		CreatedAt:    1700000000000,
		UpdatedAt:    1700000000000,
	}
	require.NoError(t, store.Insert(ctx, r))

	got, err := store.GetByID(ctx, "s-001")
	require.NoError(t, err)
	assert.Equal(t, r.Handle, got.Handle)
	assert.Equal(t, *r.TokenAddress, *got.TokenAddress)
	assert.Nil(t, got.AvatarURL)
	assert.True(t, got.Approved)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStreamerStore_Uniqueness(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStreamerStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.StreamerRecord{ID: "s-1", Handle: "Alice", TokenAddress: ptr("tok")}))

	err := store.Insert(ctx, &domain.StreamerRecord{ID: "s-2", Handle: "ALICE"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.Insert(ctx, &domain.StreamerRecord{ID: "s-3", Handle: "Bob", TokenAddress: ptr("tok")})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Empty token is stored as NULL and never collides
	require.NoError(t, store.Insert(ctx, &domain.StreamerRecord{ID: "s-4", Handle: "Carol", TokenAddress: ptr("")}))
	require.NoError(t, store.Insert(ctx, &domain.StreamerRecord{ID: "s-5", Handle: "Dave", TokenAddress: ptr("")}))
}

func TestStreamerStore_FindAndFillMissing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStreamerStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.StreamerRecord{ID: "s-1", Handle: "Alice", AvatarURL: ptr("a.png")}))

	found, err := store.FindByHandleOrToken(ctx, "alice", ptr("unknown"))
	require.NoError(t, err)
	assert.Equal(t, "s-1", found.ID)

	changed, err := store.FillMissing(ctx, "s-1", ptr("tokA"), ptr("b.png"))
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := store.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "tokA", *got.TokenAddress)
	assert.Equal(t, "a.png", *got.AvatarURL)

	changed, err = store.FillMissing(ctx, "s-1", ptr("tokB"), nil)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = store.FillMissing(ctx, "missing", ptr("x"), nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	found, err = store.FindByHandleOrToken(ctx, "someone-else", ptr("tokA"))
	require.NoError(t, err)
	assert.Equal(t, "s-1", found.ID)
}

func TestStreamerStore_ApprovalFlow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStreamerStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.StreamerRecord{ID: "s-2", Handle: "B", Approved: true, CreatedAt: 2}))
	require.NoError(t, store.Insert(ctx, &domain.StreamerRecord{ID: "s-1", Handle: "A", Approved: true, CreatedAt: 1}))
	require.NoError(t, store.Insert(ctx, &domain.StreamerRecord{ID: "s-3", Handle: "C", CreatedAt: 3}))

	list, err := store.ListApproved(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s-1", list[0].ID)
	assert.Equal(t, "s-2", list[1].ID)

	require.NoError(t, store.SetApproved(ctx, "s-3", true))
	list, err = store.ListApproved(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	assert.ErrorIs(t, store.SetApproved(ctx, "missing", true), storage.ErrNotFound)
}
