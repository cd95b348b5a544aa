package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

func TestQuoteStore_ConsumeOnce(t *testing.T) {
	store := NewQuoteStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.PriceQuote{ID: "q1", CardID: "c1", ExpiresAt: 1000}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Consume(ctx, "q1") == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one consumer, got %d", wins)
	}
	if _, err := store.GetByID(ctx, "q1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after consume, got %v", err)
	}
}

func TestQuoteStore_DeleteExpired(t *testing.T) {
	store := NewQuoteStore()
	ctx := context.Background()

	_ = store.Insert(ctx, &domain.PriceQuote{ID: "old", CardID: "c1", ExpiresAt: 100})
	_ = store.Insert(ctx, &domain.PriceQuote{ID: "edge", CardID: "c1", ExpiresAt: 500})
	_ = store.Insert(ctx, &domain.PriceQuote{ID: "new", CardID: "c1", ExpiresAt: 900})

	n, err := store.DeleteExpired(ctx, 500)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted, got %d", n)
	}
	if _, err := store.GetByID(ctx, "edge"); err != nil {
		t.Errorf("quote expiring exactly at now must be kept: %v", err)
	}
}
