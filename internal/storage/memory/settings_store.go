package memory

import (
	"context"
	"sync"

	"pumpcards/internal/storage"
)

// SettingsStore is an in-memory implementation of storage.SettingsStore.
type SettingsStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewSettingsStore creates a new in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{
		data: make(map[string]string),
	}
}

// Get retrieves a setting value. Returns ErrNotFound if not exists.
func (s *SettingsStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[key]
	if !exists {
		return "", storage.ErrNotFound
	}
	return v, nil
}

// Put inserts or replaces a setting value.
func (s *SettingsStore) Put(_ context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// Verify interface compliance at compile time.
var _ storage.SettingsStore = (*SettingsStore)(nil)
