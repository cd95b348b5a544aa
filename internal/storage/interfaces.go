package storage

import (
	"context"
	"time"

	"pumpcards/internal/domain"
)

// StreamerStore provides access to streamers storage.
type StreamerStore interface {
	// Insert adds a new streamer. Returns ErrDuplicateKey if id, handle or token address exists.
	Insert(ctx context.Context, s *domain.StreamerRecord) error

	// GetByID retrieves a streamer by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.StreamerRecord, error)

	// FindByHandleOrToken retrieves the streamer matching handle or token address.
	// A nil or empty token address matches on handle only. Returns ErrNotFound if none.
	FindByHandleOrToken(ctx context.Context, handle string, tokenAddress *string) (*domain.StreamerRecord, error)

	// FillMissing sets token address and avatar URL only where currently NULL.
	// Populated fields are never overwritten. Returns true if a field changed.
	FillMissing(ctx context.Context, id string, tokenAddress, avatarURL *string) (bool, error)

	// SetApproved updates the approval flag. Returns ErrNotFound if not exists.
	SetApproved(ctx context.Context, id string, approved bool) error

	// ListApproved retrieves all approved streamers ordered by created_at ASC.
	ListApproved(ctx context.Context) ([]*domain.StreamerRecord, error)
}

// CardStore provides access to cards storage.
type CardStore interface {
	// Insert adds a new card. Returns ErrDuplicateKey if id or streamer_id exists.
	Insert(ctx context.Context, c *domain.Card) error

	// GetByID retrieves a card by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Card, error)

	// GetByStreamerID retrieves the card of a streamer. Returns ErrNotFound if not exists.
	GetByStreamerID(ctx context.Context, streamerID string) (*domain.Card, error)

	// UpgradeTier moves the card from one tier to another only if its current tier is from.
	// Returns false when the card's tier changed concurrently.
	UpgradeTier(ctx context.Context, id string, from, to domain.Tier, updatedAt int64) (bool, error)

	// IncrementSupply adds one to supply and returns the new value.
	IncrementSupply(ctx context.Context, id string) (int64, error)
}

// MetricSampleStore provides access to metric_samples storage.
type MetricSampleStore interface {
	// Append adds samples. Samples are append-only and never deduplicated.
	Append(ctx context.Context, samples []*domain.MetricSample) error

	// Rolling aggregates a streamer's samples with timestamp > since.
	// Streamers without samples yield zero-valued metrics.
	Rolling(ctx context.Context, streamerID string, since int64) (*domain.RollingMetrics, error)
}

// ThresholdStore provides access to tier_thresholds storage.
type ThresholdStore interface {
	// List retrieves all thresholds ordered from lowest to highest rank.
	List(ctx context.Context) ([]domain.TierThreshold, error)

	// Upsert inserts or replaces the threshold of t.Tier.
	Upsert(ctx context.Context, t domain.TierThreshold) error
}

// SettingsStore provides access to settings key/value storage.
type SettingsStore interface {
	// Get retrieves a setting value. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key string) (string, error)

	// Put inserts or replaces a setting value.
	Put(ctx context.Context, key, value string) error
}

// QuoteStore provides access to price_quotes storage.
type QuoteStore interface {
	// Insert adds a new quote. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, q *domain.PriceQuote) error

	// GetByID retrieves a quote by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.PriceQuote, error)

	// Consume deletes a quote. Returns ErrNotFound if already consumed or missing,
	// so exactly one concurrent caller succeeds.
	Consume(ctx context.Context, id string) error

	// DeleteExpired removes quotes with expires_at < now and returns the count.
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

// MintStore provides access to mints and mint_activity storage.
type MintStore interface {
	// Insert adds a mint record. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, m *domain.MintRecord) error

	// AppendActivity records one mint event.
	AppendActivity(ctx context.Context, a domain.MintActivity) error

	// CountActivitySince counts mint events with minted_at > since, keyed by card id.
	CountActivitySince(ctx context.Context, since int64) (map[string]int, error)

	// DeleteActivityBefore removes mint events with minted_at < before.
	DeleteActivityBefore(ctx context.Context, before int64) (int64, error)
}

// Cache is a TTL key/value store for ephemeral state (surge, upgrade history).
type Cache interface {
	// Get retrieves a value. Returns ErrNotFound if absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put inserts or replaces a value that expires after ttl.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// ListByPrefix returns live keys starting with prefix, sorted ASC.
	ListByPrefix(ctx context.Context, prefix string) ([]string, error)
}

// LeaseStore guards scheduled triggers against overlapping runs.
type LeaseStore interface {
	// TryAcquire takes the named lease for owner until ttl elapses.
	// Returns false if another owner holds an unexpired lease.
	TryAcquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)

	// Release drops the lease if owner still holds it.
	Release(ctx context.Context, name, owner string) error
}
