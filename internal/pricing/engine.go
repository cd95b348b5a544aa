package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pumpcards/internal/domain"
	"pumpcards/internal/observability"
	"pumpcards/internal/storage"
)

// SurgeSource provides the current surge multiplier of a card.
type SurgeSource interface {
	Multiplier(ctx context.Context, cardID string) float64
}

// Engine prices cards from stored config, rolling metrics and surge state.
type Engine struct {
	cards    storage.CardStore
	samples  storage.MetricSampleStore
	settings storage.SettingsStore
	surge    SurgeSource
	logger   logrus.FieldLogger
	now      func() time.Time
}

// EngineOptions for creating Engine.
type EngineOptions struct {
	Cards    storage.CardStore
	Samples  storage.MetricSampleStore
	Settings storage.SettingsStore
	Surge    SurgeSource
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(opts EngineOptions) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cards:    opts.Cards,
		samples:  opts.Samples,
		settings: opts.Settings,
		surge:    opts.Surge,
		logger:   opts.Logger,
		now:      now,
	}
}

// Price computes the current price of a card. The config is read fresh on every call.
// Card lookup errors are returned; any config or metrics failure yields Fallback.
func (e *Engine) Price(ctx context.Context, cardID string) (Breakdown, error) {
	card, err := e.cards.GetByID(ctx, cardID)
	if err != nil {
		return Breakdown{}, fmt.Errorf("get card %s: %w", cardID, err)
	}
	return e.PriceCard(ctx, card), nil
}

// PriceCard computes the price of a loaded card. It never fails and never
// returns less than one lamport.
func (e *Engine) PriceCard(ctx context.Context, card *domain.Card) Breakdown {
	log := e.logger.WithField("card_id", card.ID)

	cfg, err := LoadConfig(ctx, e.settings)
	if err != nil {
		log.WithError(err).Warn("Pricing config unavailable, using fallback price")
		return e.fallback(card)
	}

	rolling, err := e.samples.Rolling(ctx, card.StreamerID, e.now().UnixMilli()-domain.RollingWindowMs)
	if err != nil {
		log.WithError(err).Warn("Rolling metrics unavailable, using fallback price")
		return e.fallback(card)
	}

	surge := 1.0
	if e.surge != nil {
		surge = e.surge.Multiplier(ctx, card.ID)
	}

	b := Compute(cfg, card.Tier, *rolling, surge)
	if b.Lamports < 1 {
		log.WithField("price_sol", b.PriceSOL).Warn("Computed price rounds to zero lamports, using fallback price")
		return e.fallback(card)
	}
	b.CardID = card.ID
	observability.RecordPrice(b.Lamports, false)
	return b
}

func (e *Engine) fallback(card *domain.Card) Breakdown {
	observability.RecordPrice(FallbackPriceLamports, true)
	return Fallback(card.ID, card.Tier)
}
