package memory

import (
	"context"
	"sort"
	"sync"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// ThresholdStore is an in-memory implementation of storage.ThresholdStore.
type ThresholdStore struct {
	mu   sync.RWMutex
	data map[domain.Tier]domain.TierThreshold
}

// NewThresholdStore creates a new in-memory threshold store seeded with seed.
func NewThresholdStore(seed ...domain.TierThreshold) *ThresholdStore {
	s := &ThresholdStore{
		data: make(map[domain.Tier]domain.TierThreshold),
	}
	for _, t := range seed {
		s.data[t.Tier] = t
	}
	return s
}

// List retrieves all thresholds ordered from lowest to highest rank.
func (s *ThresholdStore) List(_ context.Context) ([]domain.TierThreshold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.TierThreshold, 0, len(s.data))
	for _, t := range s.data {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Tier.Rank() < result[j].Tier.Rank()
	})
	return result, nil
}

// Upsert inserts or replaces the threshold of t.Tier.
func (s *ThresholdStore) Upsert(_ context.Context, t domain.TierThreshold) error {
	if !t.Tier.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[t.Tier] = t
	return nil
}

// Verify interface compliance at compile time.
var _ storage.ThresholdStore = (*ThresholdStore)(nil)
