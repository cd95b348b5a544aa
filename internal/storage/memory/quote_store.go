package memory

import (
	"context"
	"sync"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// QuoteStore is an in-memory implementation of storage.QuoteStore.
type QuoteStore struct {
	mu   sync.Mutex
	data map[string]*domain.PriceQuote // keyed by id
}

// NewQuoteStore creates a new in-memory quote store.
func NewQuoteStore() *QuoteStore {
	return &QuoteStore{
		data: make(map[string]*domain.PriceQuote),
	}
}

// Insert adds a new quote. Returns ErrDuplicateKey if id exists.
func (s *QuoteStore) Insert(_ context.Context, q *domain.PriceQuote) error {
	if q == nil || q.ID == "" || q.CardID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[q.ID]; exists {
		return storage.ErrDuplicateKey
	}
	quoteCopy := *q
	s.data[q.ID] = &quoteCopy
	return nil
}

// GetByID retrieves a quote by its ID. Returns ErrNotFound if not exists.
func (s *QuoteStore) GetByID(_ context.Context, id string) (*domain.PriceQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	quoteCopy := *q
	return &quoteCopy, nil
}

// Consume deletes a quote. Returns ErrNotFound if already consumed or missing.
func (s *QuoteStore) Consume(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// DeleteExpired removes quotes with expires_at < now and returns the count.
func (s *QuoteStore) DeleteExpired(_ context.Context, now int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, q := range s.data {
		if q.ExpiresAt < now {
			delete(s.data, id)
			n++
		}
	}
	return n, nil
}

// Verify interface compliance at compile time.
var _ storage.QuoteStore = (*QuoteStore)(nil)
