package postgres

import (
	"context"
	"fmt"
	"time"

	"pumpcards/internal/storage"
)

// Cache implements storage.Cache on the cache_entries table.
// Expiry is evaluated against the database clock.
type Cache struct {
	pool *Pool
}

// NewCache creates a new Cache.
func NewCache(pool *Pool) *Cache {
	return &Cache{pool: pool}
}

// Compile-time interface check.
var _ storage.Cache = (*Cache)(nil)

// Get retrieves a value. Returns ErrNotFound if absent or expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.pool.QueryRow(ctx, `
		SELECT value FROM cache_entries
		WHERE key = $1 AND expires_at > NOW()
	`, key).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return value, nil
}

// Put inserts or replaces a value that expires after ttl.
func (c *Cache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" || ttl <= 0 {
		return storage.ErrInvalidInput
	}

	_, err := c.pool.Exec(ctx, `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES ($1, $2, NOW() + $3::bigint * INTERVAL '1 millisecond')
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    expires_at = EXCLUDED.expires_at
	`, key, value, ttl.Milliseconds())
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// ListByPrefix returns live keys starting with prefix, sorted ASC.
func (c *Cache) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT key FROM cache_entries
		WHERE starts_with(key, $1) AND expires_at > NOW()
		ORDER BY key ASC
	`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan cache key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Sweep deletes expired entries and returns the count.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	tag, err := c.pool.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("sweep cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
