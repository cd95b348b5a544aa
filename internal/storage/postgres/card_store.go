package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// CardStore implements storage.CardStore using PostgreSQL.
type CardStore struct {
	pool *Pool
}

// NewCardStore creates a new CardStore.
func NewCardStore(pool *Pool) *CardStore {
	return &CardStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CardStore = (*CardStore)(nil)

const cardColumns = `id, streamer_id, tier, supply, mint_base_price, created_at, updated_at`

// Insert adds a new card. Returns ErrDuplicateKey if id or streamer_id exists.
func (s *CardStore) Insert(ctx context.Context, c *domain.Card) error {
	if c == nil || c.ID == "" || c.StreamerID == "" || !c.Tier.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		c.ID,
		c.StreamerID,
		string(c.Tier),
		c.Supply,
		c.MintBasePrice,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// GetByID retrieves a card by its ID. Returns ErrNotFound if not exists.
func (s *CardStore) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`

	c, err := scanCard(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get card by id: %w", err)
	}
	return c, nil
}

// GetByStreamerID retrieves the card of a streamer. Returns ErrNotFound if not exists.
func (s *CardStore) GetByStreamerID(ctx context.Context, streamerID string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE streamer_id = $1`

	c, err := scanCard(s.pool.QueryRow(ctx, query, streamerID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get card by streamer id: %w", err)
	}
	return c, nil
}

// UpgradeTier moves the card from one tier to another only if its current tier is from.
func (s *CardStore) UpgradeTier(ctx context.Context, id string, from, to domain.Tier, updatedAt int64) (bool, error) {
	if !to.IsValid() {
		return false, storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE cards SET tier = $3, updated_at = $4
		WHERE id = $1 AND tier = $2
	`, id, string(from), string(to), updatedAt)
	if err != nil {
		return false, fmt.Errorf("upgrade card tier: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	if _, err := s.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// IncrementSupply adds one to supply and returns the new value.
func (s *CardStore) IncrementSupply(ctx context.Context, id string) (int64, error) {
	var supply int64
	err := s.pool.QueryRow(ctx, `
		UPDATE cards SET supply = supply + 1
		WHERE id = $1
		RETURNING supply
	`, id).Scan(&supply)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("increment card supply: %w", err)
	}
	return supply, nil
}

// scanCard scans a single row into a Card.
func scanCard(row pgx.Row) (*domain.Card, error) {
	var c domain.Card
	var tierStr string

	err := row.Scan(
		&c.ID,
		&c.StreamerID,
		&tierStr,
		&c.Supply,
		&c.MintBasePrice,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Tier = domain.Tier(tierStr)
	return &c, nil
}
