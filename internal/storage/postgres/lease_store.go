package postgres

import (
	"context"
	"fmt"
	"time"

	"pumpcards/internal/storage"
)

// LeaseStore implements storage.LeaseStore using PostgreSQL.
// Guards scheduled runs across every replica sharing the database.
type LeaseStore struct {
	pool *Pool
}

// NewLeaseStore creates a new LeaseStore.
func NewLeaseStore(pool *Pool) *LeaseStore {
	return &LeaseStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LeaseStore = (*LeaseStore)(nil)

// TryAcquire takes the named lease for owner until ttl elapses.
// The conditional upsert makes acquisition atomic.
func (s *LeaseStore) TryAcquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	if name == "" || owner == "" {
		return false, storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO scheduler_leases (name, owner, expires_at)
		VALUES ($1, $2, NOW() + $3::bigint * INTERVAL '1 millisecond')
		ON CONFLICT (name) DO UPDATE
		SET owner = EXCLUDED.owner,
		    expires_at = EXCLUDED.expires_at
		WHERE scheduler_leases.owner = EXCLUDED.owner
		   OR scheduler_leases.expires_at <= NOW()
	`, name, owner, ttl.Milliseconds())
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release drops the lease if owner still holds it.
func (s *LeaseStore) Release(ctx context.Context, name, owner string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM scheduler_leases WHERE name = $1 AND owner = $2
	`, name, owner)
	if err != nil {
		return fmt.Errorf("release lease %s: %w", name, err)
	}
	return nil
}
