package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// StreamerStore implements storage.StreamerStore using PostgreSQL.
type StreamerStore struct {
	pool *Pool
}

// NewStreamerStore creates a new StreamerStore.
func NewStreamerStore(pool *Pool) *StreamerStore {
	return &StreamerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StreamerStore = (*StreamerStore)(nil)

const streamerColumns = `id, handle, token_address, avatar_url, approved, created_at, updated_at`

// Insert adds a new streamer. Returns ErrDuplicateKey if id, handle or token address exists.
func (s *StreamerStore) Insert(ctx context.Context, r *domain.StreamerRecord) error {
	if r == nil || r.ID == "" || r.Handle == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO streamers (` + streamerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ID,
		r.Handle,
		nullIfEmpty(r.TokenAddress),
		nullIfEmpty(r.AvatarURL),
		r.Approved,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert streamer: %w", err)
	}
	return nil
}

// GetByID retrieves a streamer by its ID. Returns ErrNotFound if not exists.
func (s *StreamerStore) GetByID(ctx context.Context, id string) (*domain.StreamerRecord, error) {
	query := `SELECT ` + streamerColumns + ` FROM streamers WHERE id = $1`

	r, err := scanStreamer(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get streamer by id: %w", err)
	}
	return r, nil
}

// FindByHandleOrToken retrieves the streamer matching token address, then handle.
func (s *StreamerStore) FindByHandleOrToken(ctx context.Context, handle string, tokenAddress *string) (*domain.StreamerRecord, error) {
	if token := nullIfEmpty(tokenAddress); token != nil {
		query := `SELECT ` + streamerColumns + ` FROM streamers WHERE token_address = $1`
		r, err := scanStreamer(s.pool.QueryRow(ctx, query, *token))
		if err == nil {
			return r, nil
		}
		if !isNotFoundError(err) {
			return nil, fmt.Errorf("find streamer by token: %w", err)
		}
	}

	query := `SELECT ` + streamerColumns + ` FROM streamers WHERE LOWER(handle) = LOWER($1)`
	r, err := scanStreamer(s.pool.QueryRow(ctx, query, handle))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find streamer by handle: %w", err)
	}
	return r, nil
}

// FillMissing sets token address and avatar URL only where currently NULL.
func (s *StreamerStore) FillMissing(ctx context.Context, id string, tokenAddress, avatarURL *string) (bool, error) {
	token, avatar := nullIfEmpty(tokenAddress), nullIfEmpty(avatarURL)

	query := `
		UPDATE streamers
		SET token_address = COALESCE(token_address, $2),
		    avatar_url = COALESCE(avatar_url, $3)
		WHERE id = $1
		  AND ((token_address IS NULL AND $2::text IS NOT NULL)
		    OR (avatar_url IS NULL AND $3::text IS NOT NULL))
	`

	tag, err := s.pool.Exec(ctx, query, id, token, avatar)
	if err != nil {
		if isDuplicateKeyError(err) {
			return false, storage.ErrDuplicateKey
		}
		return false, fmt.Errorf("fill streamer fields: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	if _, err := s.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// SetApproved updates the approval flag. Returns ErrNotFound if not exists.
func (s *StreamerStore) SetApproved(ctx context.Context, id string, approved bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE streamers SET approved = $2 WHERE id = $1`, id, approved)
	if err != nil {
		return fmt.Errorf("set streamer approved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListApproved retrieves all approved streamers ordered by created_at ASC.
func (s *StreamerStore) ListApproved(ctx context.Context) ([]*domain.StreamerRecord, error) {
	query := `
		SELECT ` + streamerColumns + `
		FROM streamers
		WHERE approved
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list approved streamers: %w", err)
	}
	defer rows.Close()

	var result []*domain.StreamerRecord
	for rows.Next() {
		r, err := scanStreamer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan streamer row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate streamer rows: %w", err)
	}
	return result, nil
}

// scanStreamer scans a single row into a StreamerRecord.
func scanStreamer(row pgx.Row) (*domain.StreamerRecord, error) {
	var r domain.StreamerRecord
	err := row.Scan(
		&r.ID,
		&r.Handle,
		&r.TokenAddress,
		&r.AvatarURL,
		&r.Approved,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
