package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// MetricSampleStore implements storage.MetricSampleStore using PostgreSQL.
// Used when no ClickHouse DSN is configured.
type MetricSampleStore struct {
	pool *Pool
}

// NewMetricSampleStore creates a new MetricSampleStore.
func NewMetricSampleStore(pool *Pool) *MetricSampleStore {
	return &MetricSampleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MetricSampleStore = (*MetricSampleStore)(nil)

// Append adds samples with a single COPY.
func (s *MetricSampleStore) Append(ctx context.Context, samples []*domain.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(samples))
	for _, m := range samples {
		if m == nil || m.StreamerID == "" {
			return storage.ErrInvalidInput
		}
		rows = append(rows, []any{m.StreamerID, m.Timestamp, m.Viewers, m.GasSpent, m.Donations, m.Volume, m.Holders})
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"metric_samples"},
		[]string{"streamer_id", "timestamp_ms", "viewers", "gas_spent", "donations", "volume", "holders"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy metric samples: %w", err)
	}
	return nil
}

// Rolling aggregates a streamer's samples with timestamp > since.
func (s *MetricSampleStore) Rolling(ctx context.Context, streamerID string, since int64) (*domain.RollingMetrics, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(AVG(viewers), 0)::DOUBLE PRECISION,
			COALESCE(SUM(gas_spent), 0),
			COALESCE(SUM(donations), 0),
			COALESCE(SUM(volume), 0),
			COALESCE(MAX(holders), 0)
		FROM metric_samples
		WHERE streamer_id = $1 AND timestamp_ms > $2
	`

	out := &domain.RollingMetrics{StreamerID: streamerID}
	var n int64
	err := s.pool.QueryRow(ctx, query, streamerID, since).Scan(
		&n, &out.AvgViewers, &out.GasSum, &out.DonationsSum, &out.VolumeSum, &out.MaxHolders,
	)
	if err != nil {
		return nil, fmt.Errorf("query rolling metrics: %w", err)
	}
	out.SampleCount = int(n)
	return out, nil
}
