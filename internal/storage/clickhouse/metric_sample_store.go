package clickhouse

import (
	"context"
	"fmt"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// MetricSampleStore implements storage.MetricSampleStore using ClickHouse.
// Samples land in a MergeTree table partitioned by day and are never deduplicated.
type MetricSampleStore struct {
	conn *Conn
}

// NewMetricSampleStore creates a new MetricSampleStore.
func NewMetricSampleStore(conn *Conn) *MetricSampleStore {
	return &MetricSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MetricSampleStore = (*MetricSampleStore)(nil)

// Append adds samples in a single batch.
func (s *MetricSampleStore) Append(ctx context.Context, samples []*domain.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}
	for _, m := range samples {
		if m == nil || m.StreamerID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO metric_samples (
			streamer_id, timestamp_ms, viewers, gas_spent, donations, volume, holders
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, m := range samples {
		err = batch.Append(
			m.StreamerID, uint64(m.Timestamp), uint64(max(m.Viewers, 0)),
			m.GasSpent, m.Donations, m.Volume, uint64(max(m.Holders, 0)),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Rolling aggregates a streamer's samples with timestamp > since.
func (s *MetricSampleStore) Rolling(ctx context.Context, streamerID string, since int64) (*domain.RollingMetrics, error) {
	query := `
		SELECT
			count() AS n,
			sum(viewers) AS viewers_sum,
			sum(gas_spent) AS gas_sum,
			sum(donations) AS donations_sum,
			sum(volume) AS volume_sum,
			max(holders) AS max_holders
		FROM metric_samples
		WHERE streamer_id = ? AND timestamp_ms > ?
	`

	var (
		n, viewersSum, maxHolders uint64
		out                       = &domain.RollingMetrics{StreamerID: streamerID}
	)
	err := s.conn.QueryRow(ctx, query, streamerID, uint64(max(since, 0))).Scan(
		&n, &viewersSum, &out.GasSum, &out.DonationsSum, &out.VolumeSum, &maxHolders,
	)
	if err != nil {
		return nil, fmt.Errorf("query rolling metrics: %w", err)
	}

	out.SampleCount = int(n)
	out.MaxHolders = int64(maxHolders)
	if n > 0 {
		out.AvgViewers = float64(viewersSum) / float64(n)
	}
	return out, nil
}
