package tier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pumpcards/internal/domain"
	"pumpcards/internal/observability"
	"pumpcards/internal/storage"
)

const (
	// UpgradeKeyPrefix prefixes cached upgrade events, keyed by streamer id.
	UpgradeKeyPrefix = "tier_upgrade:"
	// UpgradeTTL is how long an upgrade event stays visible.
	UpgradeTTL = 24 * time.Hour
)

// Result summarizes one evaluation pass.
type Result struct {
	Processed int `json:"processed"`
	Upgraded  int `json:"upgraded"`
	Errors    int `json:"errors"`
}

// Evaluator runs tier evaluation over approved streamers.
type Evaluator struct {
	streamers  storage.StreamerStore
	cards      storage.CardStore
	samples    storage.MetricSampleStore
	thresholds storage.ThresholdStore
	cache      storage.Cache
	logger     logrus.FieldLogger
	now        func() time.Time
}

// Options for creating Evaluator.
type Options struct {
	Streamers  storage.StreamerStore
	Cards      storage.CardStore
	Samples    storage.MetricSampleStore
	Thresholds storage.ThresholdStore
	Cache      storage.Cache
	Logger     logrus.FieldLogger
	Now        func() time.Time
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(opts Options) *Evaluator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Evaluator{
		streamers:  opts.Streamers,
		cards:      opts.Cards,
		samples:    opts.Samples,
		thresholds: opts.Thresholds,
		cache:      opts.Cache,
		logger:     opts.Logger,
		now:        now,
	}
}

// EvaluateAndUpgrade computes each approved streamer's eligible tier from its
// trailing 24h metrics and commits upgrades. Tiers never move down.
// Per-streamer failures are counted; storage failures loading the batch are returned.
func (e *Evaluator) EvaluateAndUpgrade(ctx context.Context) (Result, error) {
	var res Result

	thresholds, err := e.thresholds.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list thresholds: %w", err)
	}
	if len(thresholds) == 0 {
		e.logger.Warn("No tier thresholds configured")
		res.Errors++
		return res, nil
	}

	streamers, err := e.streamers.ListApproved(ctx)
	if err != nil {
		return res, fmt.Errorf("list approved streamers: %w", err)
	}

	for _, s := range streamers {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		card, err := e.cards.GetByStreamerID(ctx, s.ID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		res.Processed++
		if err != nil {
			e.fail(&res, s, fmt.Errorf("get card: %w", err))
			continue
		}

		upgraded, err := e.evaluate(ctx, s, card, thresholds)
		if err != nil {
			e.fail(&res, s, err)
			continue
		}
		if upgraded {
			res.Upgraded++
		}
	}

	e.logger.WithFields(logrus.Fields{
		"processed": res.Processed,
		"upgraded":  res.Upgraded,
		"errors":    res.Errors,
	}).Info("Tier evaluation complete")
	return res, nil
}

func (e *Evaluator) evaluate(ctx context.Context, s *domain.StreamerRecord, card *domain.Card, thresholds []domain.TierThreshold) (bool, error) {
	now := e.now()
	rolling, err := e.samples.Rolling(ctx, s.ID, now.UnixMilli()-domain.RollingWindowMs)
	if err != nil {
		return false, fmt.Errorf("rolling metrics: %w", err)
	}

	eligible, err := EligibleTier(thresholds, *rolling)
	if err != nil {
		return false, err
	}
	if !IsUpgrade(card.Tier, eligible) {
		return false, nil
	}

	ok, err := e.cards.UpgradeTier(ctx, card.ID, card.Tier, eligible, now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("upgrade tier: %w", err)
	}
	if !ok {
		// Tier moved concurrently; the next pass re-evaluates from the new tier.
		return false, nil
	}

	observability.RecordTierUpgrade(card.Tier.String(), eligible.String())
	e.logger.WithFields(logrus.Fields{
		"streamer_id": s.ID,
		"handle":      s.Handle,
		"from":        card.Tier,
		"to":          eligible,
	}).Info("Tier upgraded")

	event := domain.UpgradeEvent{
		StreamerID: s.ID,
		From:       card.Tier,
		To:         eligible,
		Timestamp:  now.UnixMilli(),
		Metrics: domain.UpgradeMetrics{
			Viewers:   rolling.AvgViewers,
			Gas:       rolling.GasSum,
			Donations: rolling.DonationsSum,
		},
	}
	if err := e.recordUpgrade(ctx, event); err != nil {
		e.logger.WithError(err).WithField("streamer_id", s.ID).Warn("Failed to cache upgrade event")
	}
	return true, nil
}

func (e *Evaluator) fail(res *Result, s *domain.StreamerRecord, err error) {
	res.Errors++
	observability.RecordTierError()
	e.logger.WithError(err).WithFields(logrus.Fields{
		"streamer_id": s.ID,
		"handle":      s.Handle,
	}).Warn("Tier evaluation failed")
}

func (e *Evaluator) recordUpgrade(ctx context.Context, event domain.UpgradeEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.cache.Put(ctx, UpgradeKeyPrefix+event.StreamerID, b, UpgradeTTL)
}

// RecentUpgrades returns cached upgrade events newest first, with streamer handles.
// A non-positive limit returns all events.
func (e *Evaluator) RecentUpgrades(ctx context.Context, limit int) ([]domain.UpgradeEvent, error) {
	keys, err := e.cache.ListByPrefix(ctx, UpgradeKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list upgrades: %w", err)
	}

	events := make([]domain.UpgradeEvent, 0, len(keys))
	for _, key := range keys {
		raw, err := e.cache.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get upgrade %s: %w", key, err)
		}

		var ev domain.UpgradeEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			e.logger.WithError(err).WithField("key", key).Warn("Skipping unreadable upgrade event")
			continue
		}
		ev.StreamerID = strings.TrimPrefix(key, UpgradeKeyPrefix)
		ev.Handle = "Unknown"
		if s, err := e.streamers.GetByID(ctx, ev.StreamerID); err == nil {
			ev.Handle = s.Handle
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp > events[j].Timestamp })
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
