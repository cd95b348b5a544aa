package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"pumpcards/internal/storage"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCache_TTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1704067200, 0)}
	cache := NewCacheWithClock(clock.Now)
	ctx := context.Background()

	if err := cache.Put(ctx, "surge:c1", []byte("1.5"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := cache.Get(ctx, "surge:c1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "1.5" {
		t.Errorf("value mismatch: got %s", got)
	}

	clock.Advance(time.Minute)
	if _, err := cache.Get(ctx, "surge:c1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got %v", err)
	}
}

func TestCache_ListByPrefix(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1704067200, 0)}
	cache := NewCacheWithClock(clock.Now)
	ctx := context.Background()

	_ = cache.Put(ctx, "surge:b", []byte("x"), time.Hour)
	_ = cache.Put(ctx, "surge:a", []byte("x"), time.Hour)
	_ = cache.Put(ctx, "surge:gone", []byte("x"), time.Second)
	_ = cache.Put(ctx, "tier_upgrade:s1", []byte("x"), time.Hour)

	clock.Advance(2 * time.Second)

	keys, err := cache.ListByPrefix(ctx, "surge:")
	if err != nil {
		t.Fatalf("ListByPrefix failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "surge:a" || keys[1] != "surge:b" {
		t.Errorf("unexpected keys: %v", keys)
	}

	_ = cache.Delete(ctx, "surge:a")
	keys, _ = cache.ListByPrefix(ctx, "surge:")
	if len(keys) != 1 {
		t.Errorf("expected 1 key after delete, got %v", keys)
	}
}
