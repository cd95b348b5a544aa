package memory

import (
	"context"
	"testing"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

func TestThresholdStore_ListOrderedByRank(t *testing.T) {
	store := NewThresholdStore(
		domain.TierThreshold{Tier: domain.TierMythic, MinViewers: 15000},
		domain.TierThreshold{Tier: domain.TierBronze},
		domain.TierThreshold{Tier: domain.TierGold, MinViewers: 1500},
	)

	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []domain.Tier{domain.TierBronze, domain.TierGold, domain.TierMythic}
	if len(list) != len(want) {
		t.Fatalf("expected %d thresholds, got %d", len(want), len(list))
	}
	for i, tier := range want {
		if list[i].Tier != tier {
			t.Errorf("position %d: expected %s, got %s", i, tier, list[i].Tier)
		}
	}
}

func TestThresholdStore_Upsert(t *testing.T) {
	store := NewThresholdStore(domain.DefaultThresholds()...)
	ctx := context.Background()

	if err := store.Upsert(ctx, domain.TierThreshold{Tier: domain.TierSilver, MinViewers: 700}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	list, _ := store.List(ctx)
	if list[1].MinViewers != 700 {
		t.Errorf("expected silver min_viewers 700, got %v", list[1].MinViewers)
	}
	if len(list) != 5 {
		t.Errorf("upsert must replace, got %d rows", len(list))
	}

	if err := store.Upsert(ctx, domain.TierThreshold{Tier: "platinum"}); err != storage.ErrInvalidInput {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
