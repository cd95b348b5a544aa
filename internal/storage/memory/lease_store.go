package memory

import (
	"context"
	"sync"
	"time"

	"pumpcards/internal/storage"
)

type lease struct {
	owner     string
	expiresAt time.Time
}

// LeaseStore is an in-memory implementation of storage.LeaseStore.
// Only guards runs within one process.
type LeaseStore struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewLeaseStore creates a new in-memory lease store.
func NewLeaseStore() *LeaseStore {
	return &LeaseStore{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// TryAcquire takes the named lease for owner until ttl elapses.
func (s *LeaseStore) TryAcquire(_ context.Context, name, owner string, ttl time.Duration) (bool, error) {
	if name == "" || owner == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if l, held := s.leases[name]; held && l.owner != owner && now.Before(l.expiresAt) {
		return false, nil
	}
	s.leases[name] = lease{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release drops the lease if owner still holds it.
func (s *LeaseStore) Release(_ context.Context, name, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, held := s.leases[name]; held && l.owner == owner {
		delete(s.leases, name)
	}
	return nil
}

// Verify interface compliance at compile time.
var _ storage.LeaseStore = (*LeaseStore)(nil)
