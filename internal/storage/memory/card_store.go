package memory

import (
	"context"
	"sync"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// CardStore is an in-memory implementation of storage.CardStore.
type CardStore struct {
	mu         sync.RWMutex
	data       map[string]*domain.Card // keyed by id
	byStreamer map[string]string       // streamer_id -> card id
}

// NewCardStore creates a new in-memory card store.
func NewCardStore() *CardStore {
	return &CardStore{
		data:       make(map[string]*domain.Card),
		byStreamer: make(map[string]string),
	}
}

// Insert adds a new card. Returns ErrDuplicateKey if id or streamer_id exists.
func (s *CardStore) Insert(_ context.Context, c *domain.Card) error {
	if c == nil || c.ID == "" || c.StreamerID == "" || !c.Tier.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byStreamer[c.StreamerID]; exists {
		return storage.ErrDuplicateKey
	}

	cardCopy := *c
	s.data[c.ID] = &cardCopy
	s.byStreamer[c.StreamerID] = c.ID
	return nil
}

// GetByID retrieves a card by its ID. Returns ErrNotFound if not exists.
func (s *CardStore) GetByID(_ context.Context, id string) (*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cardCopy := *c
	return &cardCopy, nil
}

// GetByStreamerID retrieves the card of a streamer. Returns ErrNotFound if not exists.
func (s *CardStore) GetByStreamerID(_ context.Context, streamerID string) (*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byStreamer[streamerID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cardCopy := *s.data[id]
	return &cardCopy, nil
}

// UpgradeTier moves the card from one tier to another only if its current tier is from.
func (s *CardStore) UpgradeTier(_ context.Context, id string, from, to domain.Tier, updatedAt int64) (bool, error) {
	if !to.IsValid() {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.data[id]
	if !exists {
		return false, storage.ErrNotFound
	}
	if c.Tier != from {
		return false, nil
	}
	c.Tier = to
	c.UpdatedAt = updatedAt
	return true, nil
}

// IncrementSupply adds one to supply and returns the new value.
func (s *CardStore) IncrementSupply(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.data[id]
	if !exists {
		return 0, storage.ErrNotFound
	}
	c.Supply++
	return c.Supply, nil
}

// Verify interface compliance at compile time.
var _ storage.CardStore = (*CardStore)(nil)
