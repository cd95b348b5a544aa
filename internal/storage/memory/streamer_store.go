package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// StreamerStore is an in-memory implementation of storage.StreamerStore.
type StreamerStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StreamerRecord // keyed by id
}

// NewStreamerStore creates a new in-memory streamer store.
func NewStreamerStore() *StreamerStore {
	return &StreamerStore{
		data: make(map[string]*domain.StreamerRecord),
	}
}

// Insert adds a new streamer. Returns ErrDuplicateKey if id, handle or token address exists.
func (s *StreamerStore) Insert(_ context.Context, r *domain.StreamerRecord) error {
	if r == nil || r.ID == "" || r.Handle == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}
	for _, existing := range s.data {
		if strings.EqualFold(existing.Handle, r.Handle) {
			return storage.ErrDuplicateKey
		}
		if sameToken(existing.TokenAddress, r.TokenAddress) {
			return storage.ErrDuplicateKey
		}
	}

	s.data[r.ID] = copyStreamer(r)
	return nil
}

// GetByID retrieves a streamer by its ID. Returns ErrNotFound if not exists.
func (s *StreamerStore) GetByID(_ context.Context, id string) (*domain.StreamerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyStreamer(r), nil
}

// FindByHandleOrToken retrieves the streamer matching handle (case-insensitive) or token address.
// A token match takes precedence over a handle match.
func (s *StreamerStore) FindByHandleOrToken(_ context.Context, handle string, tokenAddress *string) (*domain.StreamerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var byHandle *domain.StreamerRecord
	for _, r := range s.data {
		if sameToken(r.TokenAddress, tokenAddress) {
			return copyStreamer(r), nil
		}
		if byHandle == nil && strings.EqualFold(r.Handle, handle) {
			byHandle = r
		}
	}
	if byHandle == nil {
		return nil, storage.ErrNotFound
	}
	return copyStreamer(byHandle), nil
}

// FillMissing sets token address and avatar URL only where currently NULL.
func (s *StreamerStore) FillMissing(_ context.Context, id string, tokenAddress, avatarURL *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[id]
	if !exists {
		return false, storage.ErrNotFound
	}

	changed := false
	if r.TokenAddress == nil && tokenAddress != nil && *tokenAddress != "" {
		for otherID, other := range s.data {
			if otherID != id && sameToken(other.TokenAddress, tokenAddress) {
				return false, storage.ErrDuplicateKey
			}
		}
		v := *tokenAddress
		r.TokenAddress = &v
		changed = true
	}
	if r.AvatarURL == nil && avatarURL != nil && *avatarURL != "" {
		v := *avatarURL
		r.AvatarURL = &v
		changed = true
	}
	return changed, nil
}

// SetApproved updates the approval flag. Returns ErrNotFound if not exists.
func (s *StreamerStore) SetApproved(_ context.Context, id string, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	r.Approved = approved
	return nil
}

// ListApproved retrieves all approved streamers ordered by created_at ASC.
func (s *StreamerStore) ListApproved(_ context.Context) ([]*domain.StreamerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StreamerRecord
	for _, r := range s.data {
		if r.Approved {
			result = append(result, copyStreamer(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func sameToken(a, b *string) bool {
	return a != nil && b != nil && *a != "" && *a == *b
}

func copyStreamer(r *domain.StreamerRecord) *domain.StreamerRecord {
	c := *r
	if r.TokenAddress != nil {
		v := *r.TokenAddress
		c.TokenAddress = &v
	}
	if r.AvatarURL != nil {
		v := *r.AvatarURL
		c.AvatarURL = &v
	}
	return &c
}

// Verify interface compliance at compile time.
var _ storage.StreamerStore = (*StreamerStore)(nil)
