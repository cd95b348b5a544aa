package memory

import (
	"context"
	"sync"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// MetricSampleStore is an in-memory implementation of storage.MetricSampleStore.
type MetricSampleStore struct {
	mu   sync.RWMutex
	data map[string][]domain.MetricSample // keyed by streamer_id
}

// NewMetricSampleStore creates a new in-memory metric sample store.
func NewMetricSampleStore() *MetricSampleStore {
	return &MetricSampleStore{
		data: make(map[string][]domain.MetricSample),
	}
}

// Append adds samples.
func (s *MetricSampleStore) Append(_ context.Context, samples []*domain.MetricSample) error {
	for _, m := range samples {
		if m == nil || m.StreamerID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range samples {
		s.data[m.StreamerID] = append(s.data[m.StreamerID], *m)
	}
	return nil
}

// Rolling aggregates a streamer's samples with timestamp > since.
func (s *MetricSampleStore) Rolling(_ context.Context, streamerID string, since int64) (*domain.RollingMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &domain.RollingMetrics{StreamerID: streamerID}
	var viewerSum float64
	for _, m := range s.data[streamerID] {
		if m.Timestamp <= since {
			continue
		}
		viewerSum += float64(m.Viewers)
		out.GasSum += m.GasSpent
		out.DonationsSum += m.Donations
		out.VolumeSum += m.Volume
		if m.Holders > out.MaxHolders {
			out.MaxHolders = m.Holders
		}
		out.SampleCount++
	}
	if out.SampleCount > 0 {
		out.AvgViewers = viewerSum / float64(out.SampleCount)
	}
	return out, nil
}

// Verify interface compliance at compile time.
var _ storage.MetricSampleStore = (*MetricSampleStore)(nil)
