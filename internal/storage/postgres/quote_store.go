package postgres

import (
	"context"
	"fmt"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// QuoteStore implements storage.QuoteStore using PostgreSQL.
type QuoteStore struct {
	pool *Pool
}

// NewQuoteStore creates a new QuoteStore.
func NewQuoteStore(pool *Pool) *QuoteStore {
	return &QuoteStore{pool: pool}
}

// Compile-time interface check.
var _ storage.QuoteStore = (*QuoteStore)(nil)

// Insert adds a new quote. Returns ErrDuplicateKey if id exists.
func (s *QuoteStore) Insert(ctx context.Context, q *domain.PriceQuote) error {
	if q == nil || q.ID == "" || q.CardID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO price_quotes (id, card_id, price_lamports, signature, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, q.ID, q.CardID, q.PriceLamports, q.Signature, q.ExpiresAt, q.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

// GetByID retrieves a quote by its ID. Returns ErrNotFound if not exists.
func (s *QuoteStore) GetByID(ctx context.Context, id string) (*domain.PriceQuote, error) {
	var q domain.PriceQuote
	err := s.pool.QueryRow(ctx, `
		SELECT id, card_id, price_lamports, signature, expires_at, created_at
		FROM price_quotes
		WHERE id = $1
	`, id).Scan(&q.ID, &q.CardID, &q.PriceLamports, &q.Signature, &q.ExpiresAt, &q.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get quote by id: %w", err)
	}
	return &q, nil
}

// Consume deletes a quote. Returns ErrNotFound if already consumed or missing.
func (s *QuoteStore) Consume(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM price_quotes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("consume quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteExpired removes quotes with expires_at < now and returns the count.
func (s *QuoteStore) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM price_quotes WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired quotes: %w", err)
	}
	return tag.RowsAffected(), nil
}
