package memory

import (
	"context"
	"errors"
	"testing"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

func strPtr(s string) *string { return &s }

func TestStreamerStore_InsertAndGet(t *testing.T) {
	store := NewStreamerStore()
	ctx := context.Background()

	r := &domain.StreamerRecord{
		ID:           "s1",
		Handle:       "PumpKing",
		TokenAddress: strPtr("tokenA"),
		CreatedAt:    1704067200000,
	}
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the input must not affect the stored copy
	*r.TokenAddress = "mutated"

	got, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Handle != "PumpKing" {
		t.Errorf("Handle mismatch: got %s", got.Handle)
	}
	if got.TokenAddress == nil || *got.TokenAddress != "tokenA" {
		t.Errorf("TokenAddress mismatch: got %v", got.TokenAddress)
	}
}

func TestStreamerStore_DuplicateHandleOrToken(t *testing.T) {
	store := NewStreamerStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.StreamerRecord{ID: "s1", Handle: "Alice", TokenAddress: strPtr("tok")}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	tests := []struct {
		name string
		rec  *domain.StreamerRecord
	}{
		{"same id", &domain.StreamerRecord{ID: "s1", Handle: "Other"}},
		{"same handle different case", &domain.StreamerRecord{ID: "s2", Handle: "alice"}},
		{"same token", &domain.StreamerRecord{ID: "s3", Handle: "Bob", TokenAddress: strPtr("tok")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Insert(ctx, tt.rec)
			if !errors.Is(err, storage.ErrDuplicateKey) {
				t.Errorf("Expected ErrDuplicateKey, got %v", err)
			}
		})
	}
}

func TestStreamerStore_FindByHandleOrToken(t *testing.T) {
	store := NewStreamerStore()
	ctx := context.Background()

	_ = store.Insert(ctx, &domain.StreamerRecord{ID: "s1", Handle: "Alice"})
	_ = store.Insert(ctx, &domain.StreamerRecord{ID: "s2", Handle: "Bob", TokenAddress: strPtr("tokB")})

	got, err := store.FindByHandleOrToken(ctx, "ALICE", nil)
	if err != nil {
		t.Fatalf("FindByHandleOrToken failed: %v", err)
	}
	if got.ID != "s1" {
		t.Errorf("expected s1, got %s", got.ID)
	}

	// Token match wins over handle match
	got, err = store.FindByHandleOrToken(ctx, "Alice", strPtr("tokB"))
	if err != nil {
		t.Fatalf("FindByHandleOrToken failed: %v", err)
	}
	if got.ID != "s2" {
		t.Errorf("expected s2, got %s", got.ID)
	}

	_, err = store.FindByHandleOrToken(ctx, "Carol", strPtr("none"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStreamerStore_FillMissing(t *testing.T) {
	store := NewStreamerStore()
	ctx := context.Background()

	_ = store.Insert(ctx, &domain.StreamerRecord{ID: "s1", Handle: "Alice", AvatarURL: strPtr("a.png")})

	changed, err := store.FillMissing(ctx, "s1", strPtr("tokA"), strPtr("b.png"))
	if err != nil {
		t.Fatalf("FillMissing failed: %v", err)
	}
	if !changed {
		t.Error("expected change when token was NULL")
	}

	got, _ := store.GetByID(ctx, "s1")
	if *got.TokenAddress != "tokA" {
		t.Errorf("TokenAddress not filled: %v", *got.TokenAddress)
	}
	if *got.AvatarURL != "a.png" {
		t.Errorf("AvatarURL overwritten: %v", *got.AvatarURL)
	}

	changed, err = store.FillMissing(ctx, "s1", strPtr("tokZ"), nil)
	if err != nil {
		t.Fatalf("FillMissing failed: %v", err)
	}
	if changed {
		t.Error("populated token must not be overwritten")
	}
}

func TestStreamerStore_ListApproved(t *testing.T) {
	store := NewStreamerStore()
	ctx := context.Background()

	_ = store.Insert(ctx, &domain.StreamerRecord{ID: "s2", Handle: "B", Approved: true, CreatedAt: 2})
	_ = store.Insert(ctx, &domain.StreamerRecord{ID: "s1", Handle: "A", Approved: true, CreatedAt: 1})
	_ = store.Insert(ctx, &domain.StreamerRecord{ID: "s3", Handle: "C", CreatedAt: 0})

	list, err := store.ListApproved(ctx)
	if err != nil {
		t.Fatalf("ListApproved failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 approved, got %d", len(list))
	}
	if list[0].ID != "s1" || list[1].ID != "s2" {
		t.Errorf("wrong order: %s, %s", list[0].ID, list[1].ID)
	}

	if err := store.SetApproved(ctx, "s3", true); err != nil {
		t.Fatalf("SetApproved failed: %v", err)
	}
	list, _ = store.ListApproved(ctx)
	if len(list) != 3 {
		t.Errorf("expected 3 approved after SetApproved, got %d", len(list))
	}

	if err := store.SetApproved(ctx, "missing", true); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
