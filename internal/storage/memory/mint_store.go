package memory

import (
	"context"
	"sync"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// MintStore is an in-memory implementation of storage.MintStore.
type MintStore struct {
	mu       sync.RWMutex
	mints    map[string]*domain.MintRecord // keyed by id
	activity []domain.MintActivity
}

// NewMintStore creates a new in-memory mint store.
func NewMintStore() *MintStore {
	return &MintStore{
		mints: make(map[string]*domain.MintRecord),
	}
}

// Insert adds a mint record. Returns ErrDuplicateKey if id exists.
func (s *MintStore) Insert(_ context.Context, m *domain.MintRecord) error {
	if m == nil || m.ID == "" || m.CardID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.mints[m.ID]; exists {
		return storage.ErrDuplicateKey
	}
	mintCopy := *m
	s.mints[m.ID] = &mintCopy
	return nil
}

// AppendActivity records one mint event.
func (s *MintStore) AppendActivity(_ context.Context, a domain.MintActivity) error {
	if a.CardID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.activity = append(s.activity, a)
	return nil
}

// CountActivitySince counts mint events with minted_at > since, keyed by card id.
func (s *MintStore) CountActivitySince(_ context.Context, since int64) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, a := range s.activity {
		if a.MintedAt > since {
			counts[a.CardID]++
		}
	}
	return counts, nil
}

// DeleteActivityBefore removes mint events with minted_at < before.
func (s *MintStore) DeleteActivityBefore(_ context.Context, before int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.activity[:0]
	var n int64
	for _, a := range s.activity {
		if a.MintedAt < before {
			n++
			continue
		}
		kept = append(kept, a)
	}
	s.activity = kept
	return n, nil
}

// Verify interface compliance at compile time.
var _ storage.MintStore = (*MintStore)(nil)
