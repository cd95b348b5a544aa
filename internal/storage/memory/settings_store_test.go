package memory

import (
	"context"
	"errors"
	"testing"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

func TestSettingsStore_GetPut(t *testing.T) {
	store := NewSettingsStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, domain.PricingConfigKey); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, domain.PricingConfigKey, `{"version":1}`); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := store.Get(ctx, domain.PricingConfigKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != `{"version":1}` {
		t.Errorf("value mismatch: %s", got)
	}
}

func TestThresholdStore_ListOrdered(t *testing.T) {
	store := NewThresholdStore(domain.DefaultThresholds()...)
	ctx := context.Background()

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("expected 5 thresholds, got %d", len(list))
	}
	for i, th := range list {
		if th.Tier != domain.TierOrder[i] {
			t.Errorf("position %d: got %s, want %s", i, th.Tier, domain.TierOrder[i])
		}
	}

	if err := store.Upsert(ctx, domain.TierThreshold{Tier: domain.TierGold, MinViewers: 2000}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	list, _ = store.List(ctx)
	if list[2].MinViewers != 2000 {
		t.Errorf("Upsert not applied: %+v", list[2])
	}

	if err := store.Upsert(ctx, domain.TierThreshold{Tier: "platinum"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
