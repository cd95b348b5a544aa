// Package orchestrator exposes pricing, quoting, minting and the batch
// triggers over the configured storage.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pumpcards/internal/discovery"
	"pumpcards/internal/domain"
	"pumpcards/internal/logging"
	"pumpcards/internal/observability"
	"pumpcards/internal/pricing"
	"pumpcards/internal/provider"
	"pumpcards/internal/quote"
	"pumpcards/internal/storage"
	"pumpcards/internal/surge"
	"pumpcards/internal/tier"
)

// Redemption errors.
var (
	ErrMissingProof  = errors.New("proof of payment is required")
	ErrInvalidWallet = errors.New("invalid buyer wallet")
)

// activityRetention is how long mint events are kept for surge detection.
const activityRetention = 24 * time.Hour

// Sweeper is implemented by caches that can drop expired entries eagerly.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// Orchestrator wires the engines to storage.
type Orchestrator struct {
	streamers  storage.StreamerStore
	cards      storage.CardStore
	thresholds storage.ThresholdStore
	settings   storage.SettingsStore
	quotes     storage.QuoteStore
	mints      storage.MintStore
	cache      storage.Cache

	aggregator *discovery.Aggregator
	persister  *discovery.Persister
	evaluator  *tier.Evaluator
	pricing    *pricing.Engine
	surge      *surge.Tracker
	signer     *quote.Signer

	singleUse bool
	logger    logrus.FieldLogger
	now       func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	Streamers  storage.StreamerStore
	Cards      storage.CardStore
	Samples    storage.MetricSampleStore
	Thresholds storage.ThresholdStore
	Settings   storage.SettingsStore
	Quotes     storage.QuoteStore
	Mints      storage.MintStore
	Cache      storage.Cache

	// Discovery
	Providers       []provider.Provider
	ProviderTimeout time.Duration

	// Quotes
	QuoteSecret     string
	QuoteTTL        time.Duration
	SingleUseQuotes bool

	Logger logrus.FieldLogger
	Now    func() time.Time
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	signer, err := quote.NewSigner(opts.QuoteSecret, opts.QuoteTTL, opts.Quotes, now)
	if err != nil {
		return nil, err
	}

	tracker := surge.NewTracker(surge.Options{
		Mints:    opts.Mints,
		Cache:    opts.Cache,
		Settings: opts.Settings,
		Logger:   logging.Component(logger, "surge"),
		Now:      now,
	})

	return &Orchestrator{
		streamers:  opts.Streamers,
		cards:      opts.Cards,
		thresholds: opts.Thresholds,
		settings:   opts.Settings,
		quotes:     opts.Quotes,
		mints:      opts.Mints,
		cache:      opts.Cache,
		aggregator: discovery.NewAggregator(opts.Providers, opts.ProviderTimeout, logging.Component(logger, "aggregator")),
		persister: discovery.NewPersister(discovery.PersisterOptions{
			Streamers: opts.Streamers,
			Cards:     opts.Cards,
			Samples:   opts.Samples,
			Logger:    logging.Component(logger, "persister"),
			Now:       now,
		}),
		evaluator: tier.NewEvaluator(tier.Options{
			Streamers:  opts.Streamers,
			Cards:      opts.Cards,
			Samples:    opts.Samples,
			Thresholds: opts.Thresholds,
			Cache:      opts.Cache,
			Logger:     logging.Component(logger, "tier"),
			Now:        now,
		}),
		pricing: pricing.NewEngine(pricing.EngineOptions{
			Cards:    opts.Cards,
			Samples:  opts.Samples,
			Settings: opts.Settings,
			Surge:    tracker,
			Logger:   logging.Component(logger, "pricing"),
			Now:      now,
		}),
		surge:     tracker,
		signer:    signer,
		singleUse: opts.SingleUseQuotes,
		logger:    logging.Component(logger, "orchestrator"),
		now:       now,
	}, nil
}

// GetPrice returns the current price of a card. Unknown cards yield storage.ErrNotFound.
func (o *Orchestrator) GetPrice(ctx context.Context, cardID string) (pricing.Breakdown, error) {
	return o.pricing.Price(ctx, cardID)
}

// IssueQuote prices a card and signs a quote at that price.
func (o *Orchestrator) IssueQuote(ctx context.Context, cardID string) (*domain.PriceQuote, error) {
	b, err := o.pricing.Price(ctx, cardID)
	if err != nil {
		return nil, err
	}
	return o.signer.Issue(ctx, cardID, b.Lamports)
}

// RedeemRequest carries a client's quote and payment.
type RedeemRequest struct {
	QuoteID       string
	CardID        string
	PriceLamports int64
	Signature     string
	PaymentProof  string
	OwnerPubkey   string
}

// RedeemQuote verifies a quote and records the mint. With single-use quotes the
// quote is consumed before anything is written, so a replay fails with
// quote.ErrInvalidQuote. If the mint cannot be recorded the quote is restored.
func (o *Orchestrator) RedeemQuote(ctx context.Context, req RedeemRequest) (*domain.MintRecord, error) {
	if req.PaymentProof == "" {
		return nil, ErrMissingProof
	}
	if !provider.IsWalletAddress(req.OwnerPubkey) {
		return nil, ErrInvalidWallet
	}

	q, err := o.signer.Verify(ctx, req.QuoteID, req.CardID, req.PriceLamports, req.Signature)
	if err != nil {
		return nil, err
	}
	if o.singleUse {
		if err := o.signer.Consume(ctx, q.ID); err != nil {
			return nil, err
		}
	}

	m, err := o.mint(ctx, q, req)
	if err != nil {
		if o.singleUse {
			o.restoreQuote(q)
		}
		return nil, err
	}
	// The mint is recorded; activity only feeds surge detection.
	if err := o.mints.AppendActivity(ctx, domain.MintActivity{CardID: q.CardID, MintedAt: m.CreatedAt}); err != nil {
		o.logger.WithError(err).WithField("card_id", q.CardID).Warn("Failed to append mint activity")
	}
	observability.RecordMint()

	o.logger.WithFields(logrus.Fields{
		"card_id":  m.CardID,
		"quote_id": m.QuoteID,
		"edition":  m.Edition,
		"lamports": m.PriceLamports,
	}).Info("Card minted")
	return m, nil
}

// mint assigns the next edition and records the mint.
func (o *Orchestrator) mint(ctx context.Context, q *domain.PriceQuote, req RedeemRequest) (*domain.MintRecord, error) {
	edition, err := o.cards.IncrementSupply(ctx, q.CardID)
	if err != nil {
		return nil, fmt.Errorf("increment supply: %w", err)
	}

	m := &domain.MintRecord{
		ID:            uuid.NewString(),
		CardID:        q.CardID,
		QuoteID:       q.ID,
		OwnerPubkey:   req.OwnerPubkey,
		PaymentProof:  req.PaymentProof,
		PriceLamports: q.PriceLamports,
		Edition:       edition,
		CreatedAt:     o.now().UnixMilli(),
	}
	if err := o.mints.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("insert mint: %w", err)
	}
	return m, nil
}

// restoreQuote returns a consumed quote after a failed mint so the buyer can retry.
func (o *Orchestrator) restoreQuote(q *domain.PriceQuote) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.signer.Restore(ctx, q); err != nil {
		o.logger.WithError(err).WithField("quote_id", q.ID).Error("Failed to restore quote after mint failure")
	}
}

// DiscoveryResult is the outcome of one discovery trigger.
type DiscoveryResult struct {
	discovery.Summary
	Report discovery.Report `json:"report"`
}

// TriggerDiscovery fetches from every provider and persists the reconciled
// records. New streamers are approved only when autoApprove is set.
func (o *Orchestrator) TriggerDiscovery(ctx context.Context, autoApprove bool) (DiscoveryResult, error) {
	records, report := o.aggregator.Discover(ctx)
	sum, err := o.persister.Persist(ctx, records, autoApprove)
	res := DiscoveryResult{Summary: sum, Report: report}
	if err != nil {
		return res, fmt.Errorf("persist discovery: %w", err)
	}

	o.logger.WithFields(logrus.Fields{
		"discovered":   sum.Discovered,
		"created":      sum.Created,
		"updated":      sum.Updated,
		"errors":       sum.Errors,
		"synthetic":    report.Synthetic,
		"auto_approve": autoApprove,
	}).Info("Discovery completed")
	return res, nil
}

// TriggerTierUpgrade evaluates every approved streamer and upgrades eligible cards.
func (o *Orchestrator) TriggerTierUpgrade(ctx context.Context) (tier.Result, error) {
	return o.evaluator.EvaluateAndUpgrade(ctx)
}

// GetActiveSurges lists cards currently under surge pricing.
func (o *Orchestrator) GetActiveSurges(ctx context.Context) ([]domain.SurgeData, error) {
	return o.surge.ActiveSurges(ctx)
}

// ProviderStatus lists the configured providers.
func (o *Orchestrator) ProviderStatus() []provider.Status {
	return provider.Statuses(o.aggregator.Providers())
}

// ApproveStreamer marks a streamer approved and makes sure it has a card.
func (o *Orchestrator) ApproveStreamer(ctx context.Context, streamerID string) (*domain.Card, error) {
	if err := o.streamers.SetApproved(ctx, streamerID, true); err != nil {
		return nil, fmt.Errorf("approve streamer %s: %w", streamerID, err)
	}
	return o.persister.EnsureCard(ctx, streamerID)
}

// IngestManual stores operator-supplied streamers and metrics.
func (o *Orchestrator) IngestManual(ctx context.Context, records []discovery.ManualRecord) (discovery.Summary, error) {
	return o.persister.IngestManual(ctx, records)
}

// RecentUpgrades lists cached upgrade events, newest first.
func (o *Orchestrator) RecentUpgrades(ctx context.Context, limit int) ([]domain.UpgradeEvent, error) {
	return o.evaluator.RecentUpgrades(ctx, limit)
}

// Thresholds lists tier thresholds from lowest to highest rank.
func (o *Orchestrator) Thresholds(ctx context.Context) ([]domain.TierThreshold, error) {
	return o.thresholds.List(ctx)
}

// UpdateThreshold validates and stores one tier threshold.
func (o *Orchestrator) UpdateThreshold(ctx context.Context, t domain.TierThreshold) (domain.TierThreshold, error) {
	if err := tier.ValidateThreshold(t); err != nil {
		return domain.TierThreshold{}, err
	}
	t.UpdatedAt = o.now().UnixMilli()
	if err := o.thresholds.Upsert(ctx, t); err != nil {
		return domain.TierThreshold{}, fmt.Errorf("upsert threshold: %w", err)
	}
	return t, nil
}

// PricingConfig returns the stored pricing config.
func (o *Orchestrator) PricingConfig(ctx context.Context) (domain.PricingConfig, error) {
	return pricing.LoadConfig(ctx, o.settings)
}

// UpdatePricingConfig validates and stores a new pricing config version.
func (o *Orchestrator) UpdatePricingConfig(ctx context.Context, cfg domain.PricingConfig) (domain.PricingConfig, error) {
	return pricing.SaveConfig(ctx, o.settings, cfg)
}

// RefreshResult is the outcome of one cleanup pass.
type RefreshResult struct {
	ExpiredQuotes  int64 `json:"expired_quotes"`
	PrunedActivity int64 `json:"pruned_activity"`
	SweptCache     int64 `json:"swept_cache"`
	Surges         int   `json:"surges"`
	Errors         int   `json:"errors"`
}

// Refresh deletes expired quotes and old mint activity, then recomputes surge.
// Each step runs even if an earlier one failed; the first failure is returned.
func (o *Orchestrator) Refresh(ctx context.Context) (RefreshResult, error) {
	var res RefreshResult
	var firstErr error
	fail := func(step string, err error) {
		res.Errors++
		o.logger.WithError(err).WithField("step", step).Error("Refresh step failed")
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", step, err)
		}
	}

	now := o.now()

	n, err := o.quotes.DeleteExpired(ctx, now.UnixMilli())
	if err != nil {
		fail("delete expired quotes", err)
	}
	res.ExpiredQuotes = n

	n, err = o.mints.DeleteActivityBefore(ctx, now.Add(-activityRetention).UnixMilli())
	if err != nil {
		fail("prune mint activity", err)
	}
	res.PrunedActivity = n

	if sw, ok := o.cache.(Sweeper); ok {
		n, err = sw.Sweep(ctx)
		if err != nil {
			fail("sweep cache", err)
		}
		res.SweptCache = n
	}

	surges, err := o.surge.Recompute(ctx)
	if err != nil {
		fail("recompute surge", err)
	}
	res.Surges = surges

	o.logger.WithFields(logrus.Fields{
		"expired_quotes":  res.ExpiredQuotes,
		"pruned_activity": res.PrunedActivity,
		"surges":          res.Surges,
	}).Debug("Refresh completed")
	return res, firstErr
}
