// Package discovery fans out to streamer providers, reconciles their records
// and persists canonical streamers with their metric samples.
package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pumpcards/internal/domain"
	"pumpcards/internal/observability"
	"pumpcards/internal/provider"
)

// DefaultProviderTimeout bounds a single provider call.
const DefaultProviderTimeout = 30 * time.Second

// ProviderResult is the outcome of one provider call.
type ProviderResult struct {
	Name     string        `json:"name"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration_ns"`
	Err      string        `json:"error,omitempty"`
	Skipped  bool          `json:"skipped,omitempty"`
}

// Report describes one discovery pass.
type Report struct {
	Providers []ProviderResult `json:"providers"`
	Fetched   int              `json:"fetched"`
	Merged    int              `json:"merged"`
	Filtered  int              `json:"filtered"`
	// Synthetic is true when the records came from a synthetic provider only.
	Synthetic bool `json:"synthetic"`
}

// Aggregator calls every enabled provider concurrently and reconciles their output.
type Aggregator struct {
	providers []provider.Provider
	timeout   time.Duration
	logger    logrus.FieldLogger
}

// NewAggregator creates an aggregator. A non-positive timeout uses DefaultProviderTimeout.
func NewAggregator(providers []provider.Provider, timeout time.Duration, logger logrus.FieldLogger) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Aggregator{
		providers: providers,
		timeout:   timeout,
		logger:    logger,
	}
}

// Providers returns the configured providers.
func (a *Aggregator) Providers() []provider.Provider {
	return a.providers
}

// Discover fetches from all providers, waits for every call to settle, then
// deduplicates and filters. Provider failures are logged and yield no records.
// Synthetic providers contribute only when no live provider returned records.
func (a *Aggregator) Discover(ctx context.Context) ([]domain.NormalizedRecord, Report) {
	results := make([]ProviderResult, len(a.providers))
	batches := make([][]domain.NormalizedRecord, len(a.providers))

	// Goroutines never return an error: one provider must not cancel the others.
	var g errgroup.Group
	for i, p := range a.providers {
		results[i] = ProviderResult{Name: p.Name()}
		if !p.Enabled() {
			results[i].Skipped = true
			continue
		}
		g.Go(func() error {
			batches[i], results[i] = a.fetch(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	var live, synthetic []domain.NormalizedRecord
	for i, p := range a.providers {
		if p.Synthetic() {
			synthetic = append(synthetic, batches[i]...)
		} else {
			live = append(live, batches[i]...)
		}
	}

	report := Report{Providers: results}
	all := live
	if len(live) == 0 && len(synthetic) > 0 {
		all = synthetic
		report.Synthetic = true
	}
	report.Fetched = len(all)

	deduped, merged := Dedup(all)
	report.Merged = merged
	observability.RecordMerged(merged)

	out := make([]domain.NormalizedRecord, 0, len(deduped))
	for _, rec := range deduped {
		if reason, ok := Filter(rec); !ok {
			report.Filtered++
			observability.RecordFiltered(reason)
			continue
		}
		out = append(out, rec)
	}

	a.logger.WithFields(logrus.Fields{
		"fetched":   report.Fetched,
		"merged":    report.Merged,
		"filtered":  report.Filtered,
		"kept":      len(out),
		"synthetic": report.Synthetic,
	}).Info("Discovery aggregation complete")

	return out, report
}

func (a *Aggregator) fetch(ctx context.Context, p provider.Provider) ([]domain.NormalizedRecord, ProviderResult) {
	res := ProviderResult{Name: p.Name()}
	log := a.logger.WithField("provider", p.Name())

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	records, err := p.FetchStreamers(callCtx)
	res.Duration = time.Since(start)
	observability.RecordProviderFetch(p.Name(), len(records), res.Duration.Seconds(), err)

	if err != nil {
		if errors.Is(err, provider.ErrDisabled) {
			res.Skipped = true
			return nil, res
		}
		res.Err = err.Error()
		log.WithError(err).Warn("Provider fetch failed")
		return nil, res
	}

	res.Records = len(records)
	log.WithFields(logrus.Fields{
		"records":     len(records),
		"duration_ms": res.Duration.Milliseconds(),
	}).Debug("Provider fetch complete")
	return records, res
}
