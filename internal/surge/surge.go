// Package surge tracks short bursts of mint activity per card and derives a
// temporary price multiplier that resets to neutral after a cooldown.
package surge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pumpcards/internal/domain"
	"pumpcards/internal/observability"
	"pumpcards/internal/pricing"
	"pumpcards/internal/storage"
)

// KeyPrefix prefixes cached surge state, keyed by card id.
const KeyPrefix = "surge:"

// Multiplier returns the surge multiplier for count mints inside the window.
// Counts below the threshold are neutral.
func Multiplier(cfg domain.SurgeConfig, count int) float64 {
	if cfg.ThresholdMints <= 0 || count < cfg.ThresholdMints {
		return 1
	}
	threshold := float64(cfg.ThresholdMints)
	m := 1 + (float64(count)-threshold)/threshold*(cfg.MaxMultiplier-1)
	return math.Min(m, cfg.MaxMultiplier)
}

// Tracker maintains surge state in the TTL cache.
type Tracker struct {
	mints    storage.MintStore
	cache    storage.Cache
	settings storage.SettingsStore
	logger   logrus.FieldLogger
	now      func() time.Time
}

// Options for creating Tracker.
type Options struct {
	Mints    storage.MintStore
	Cache    storage.Cache
	Settings storage.SettingsStore
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

// NewTracker creates a Tracker.
func NewTracker(opts Options) *Tracker {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		mints:    opts.Mints,
		cache:    opts.Cache,
		settings: opts.Settings,
		logger:   opts.Logger,
		now:      now,
	}
}

// Recompute counts mints per card inside the configured window and stores a
// surge entry for every card at or above the threshold. It returns the number of
// entries written. Without a pricing config nothing is written.
func (t *Tracker) Recompute(ctx context.Context) (int, error) {
	cfg, err := pricing.LoadConfig(ctx, t.settings)
	if err != nil {
		if errors.Is(err, pricing.ErrNoConfig) || errors.Is(err, domain.ErrInvalidPricingConfig) {
			t.logger.WithError(err).Warn("No usable pricing config for surge calculation")
			return 0, nil
		}
		return 0, err
	}
	sc := cfg.Surge

	now := t.now()
	window := time.Duration(sc.WindowMin) * time.Minute
	cooldown := time.Duration(sc.CooldownMin) * time.Minute

	counts, err := t.mints.CountActivitySince(ctx, now.Add(-window).UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("count mint activity: %w", err)
	}

	written := 0
	for cardID, count := range counts {
		if count < sc.ThresholdMints {
			continue
		}
		state := domain.SurgeState{
			Multiplier: Multiplier(sc, count),
			MintCount:  count,
			ExpiresAt:  now.Add(cooldown).UnixMilli(),
		}
		b, err := json.Marshal(state)
		if err != nil {
			return written, fmt.Errorf("marshal surge state: %w", err)
		}
		if err := t.cache.Put(ctx, KeyPrefix+cardID, b, cooldown); err != nil {
			return written, fmt.Errorf("put surge state: %w", err)
		}
		written++
		t.logger.WithFields(logrus.Fields{
			"card_id":    cardID,
			"mint_count": count,
			"multiplier": state.Multiplier,
		}).Info("Surge activated")
	}

	if active, err := t.ActiveSurges(ctx); err == nil {
		observability.SetActiveSurges(len(active))
	}
	return written, nil
}

// Multiplier returns the card's current surge multiplier, or 1 when none is active.
// Stale entries are evicted. Cache failures degrade to 1.
func (t *Tracker) Multiplier(ctx context.Context, cardID string) float64 {
	state, ok := t.get(ctx, cardID)
	if !ok {
		return 1
	}
	if state.Multiplier < 1 {
		return 1
	}
	return state.Multiplier
}

func (t *Tracker) get(ctx context.Context, cardID string) (domain.SurgeState, bool) {
	key := KeyPrefix + cardID
	raw, err := t.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			t.logger.WithError(err).WithField("card_id", cardID).Warn("Failed to read surge state")
		}
		return domain.SurgeState{}, false
	}

	var state domain.SurgeState
	if err := json.Unmarshal(raw, &state); err != nil {
		t.logger.WithError(err).WithField("card_id", cardID).Warn("Dropping unreadable surge state")
		_ = t.cache.Delete(ctx, key)
		return domain.SurgeState{}, false
	}
	if t.now().UnixMilli() >= state.ExpiresAt {
		_ = t.cache.Delete(ctx, key)
		return domain.SurgeState{}, false
	}
	return state, true
}

// ActiveSurges lists cards whose surge multiplier is above neutral.
func (t *Tracker) ActiveSurges(ctx context.Context) ([]domain.SurgeData, error) {
	keys, err := t.cache.ListByPrefix(ctx, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list surges: %w", err)
	}

	window := time.Duration(domain.DefaultPricingConfig().Surge.WindowMin) * time.Minute
	if cfg, err := pricing.LoadConfig(ctx, t.settings); err == nil {
		window = time.Duration(cfg.Surge.WindowMin) * time.Minute
	}

	out := make([]domain.SurgeData, 0, len(keys))
	for _, key := range keys {
		cardID := strings.TrimPrefix(key, KeyPrefix)
		state, ok := t.get(ctx, cardID)
		if !ok || state.Multiplier <= 1 {
			continue
		}
		out = append(out, domain.SurgeData{
			CardID:          cardID,
			RecentMints:     state.MintCount,
			SurgeMultiplier: state.Multiplier,
			WindowStart:     state.ExpiresAt - window.Milliseconds(),
			CooldownUntil:   state.ExpiresAt,
		})
	}
	return out, nil
}
