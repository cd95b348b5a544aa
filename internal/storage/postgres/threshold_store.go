package postgres

import (
	"context"
	"fmt"
	"sort"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// ThresholdStore implements storage.ThresholdStore using PostgreSQL.
type ThresholdStore struct {
	pool *Pool
}

// NewThresholdStore creates a new ThresholdStore.
func NewThresholdStore(pool *Pool) *ThresholdStore {
	return &ThresholdStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ThresholdStore = (*ThresholdStore)(nil)

// List retrieves all thresholds ordered from lowest to highest rank.
func (s *ThresholdStore) List(ctx context.Context) ([]domain.TierThreshold, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tier, min_viewers, min_gas_24h, min_donations_24h, updated_at
		FROM tier_thresholds
	`)
	if err != nil {
		return nil, fmt.Errorf("list tier thresholds: %w", err)
	}
	defer rows.Close()

	var result []domain.TierThreshold
	for rows.Next() {
		var t domain.TierThreshold
		var tierStr string
		if err := rows.Scan(&tierStr, &t.MinViewers, &t.MinGas24h, &t.MinDonations24h, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tier threshold row: %w", err)
		}
		t.Tier = domain.Tier(tierStr)
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tier threshold rows: %w", err)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Tier.Rank() < result[j].Tier.Rank()
	})
	return result, nil
}

// Upsert inserts or replaces the threshold of t.Tier.
func (s *ThresholdStore) Upsert(ctx context.Context, t domain.TierThreshold) error {
	if !t.Tier.IsValid() {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tier_thresholds (tier, min_viewers, min_gas_24h, min_donations_24h, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tier) DO UPDATE
		SET min_viewers = EXCLUDED.min_viewers,
		    min_gas_24h = EXCLUDED.min_gas_24h,
		    min_donations_24h = EXCLUDED.min_donations_24h,
		    updated_at = EXCLUDED.updated_at
	`, string(t.Tier), t.MinViewers, t.MinGas24h, t.MinDonations24h, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert tier threshold: %w", err)
	}
	return nil
}
