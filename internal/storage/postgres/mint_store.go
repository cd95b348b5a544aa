package postgres

import (
	"context"
	"fmt"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// MintStore implements storage.MintStore using PostgreSQL.
type MintStore struct {
	pool *Pool
}

// NewMintStore creates a new MintStore.
func NewMintStore(pool *Pool) *MintStore {
	return &MintStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MintStore = (*MintStore)(nil)

// Insert adds a mint record. Returns ErrDuplicateKey if id exists.
func (s *MintStore) Insert(ctx context.Context, m *domain.MintRecord) error {
	if m == nil || m.ID == "" || m.CardID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO mints (id, card_id, quote_id, owner_pubkey, payment_proof, price_lamports, edition, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.CardID, m.QuoteID, m.OwnerPubkey, m.PaymentProof, m.PriceLamports, m.Edition, m.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert mint: %w", err)
	}
	return nil
}

// AppendActivity records one mint event.
func (s *MintStore) AppendActivity(ctx context.Context, a domain.MintActivity) error {
	if a.CardID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO mint_activity (card_id, minted_at) VALUES ($1, $2)
	`, a.CardID, a.MintedAt)
	if err != nil {
		return fmt.Errorf("insert mint activity: %w", err)
	}
	return nil
}

// CountActivitySince counts mint events with minted_at > since, keyed by card id.
func (s *MintStore) CountActivitySince(ctx context.Context, since int64) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT card_id, COUNT(*)
		FROM mint_activity
		WHERE minted_at > $1
		GROUP BY card_id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("count mint activity: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var cardID string
		var n int64
		if err := rows.Scan(&cardID, &n); err != nil {
			return nil, fmt.Errorf("scan mint activity row: %w", err)
		}
		counts[cardID] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint activity rows: %w", err)
	}
	return counts, nil
}

// DeleteActivityBefore removes mint events with minted_at < before.
func (s *MintStore) DeleteActivityBefore(ctx context.Context, before int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM mint_activity WHERE minted_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete mint activity: %w", err)
	}
	return tag.RowsAffected(), nil
}
