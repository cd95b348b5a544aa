package memory

import (
	"context"
	"testing"
	"time"
)

func TestLeaseStore_TryAcquire(t *testing.T) {
	store := NewLeaseStore()
	ctx := context.Background()

	ok, err := store.TryAcquire(ctx, "discovery", "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire failed: ok=%v err=%v", ok, err)
	}

	ok, _ = store.TryAcquire(ctx, "discovery", "b", time.Minute)
	if ok {
		t.Error("second owner must not acquire a held lease")
	}

	// Re-entrant for the same owner
	ok, _ = store.TryAcquire(ctx, "discovery", "a", time.Minute)
	if !ok {
		t.Error("holder should be able to renew")
	}

	_ = store.Release(ctx, "discovery", "a")
	ok, _ = store.TryAcquire(ctx, "discovery", "b", time.Minute)
	if !ok {
		t.Error("lease should be free after release")
	}
}

func TestLeaseStore_Expiry(t *testing.T) {
	store := NewLeaseStore()
	now := time.Unix(1704067200, 0)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = store.TryAcquire(ctx, "tiers", "a", time.Minute)
	now = now.Add(time.Minute)

	ok, _ := store.TryAcquire(ctx, "tiers", "b", time.Minute)
	if !ok {
		t.Error("expired lease should be acquirable")
	}
}
