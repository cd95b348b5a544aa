package tier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpcards/internal/domain"
	"pumpcards/internal/logging"
	"pumpcards/internal/storage/memory"
)

type fixture struct {
	ctx        context.Context
	now        time.Time
	streamers  *memory.StreamerStore
	cards      *memory.CardStore
	samples    *memory.MetricSampleStore
	thresholds *memory.ThresholdStore
	cache      *memory.Cache
	eval       *Evaluator
}

func newFixture(t *testing.T, thresholds ...domain.TierThreshold) *fixture {
	t.Helper()
	now := time.UnixMilli(1_700_000_000_000)
	f := &fixture{
		ctx:        context.Background(),
		now:        now,
		streamers:  memory.NewStreamerStore(),
		cards:      memory.NewCardStore(),
		samples:    memory.NewMetricSampleStore(),
		thresholds: memory.NewThresholdStore(thresholds...),
		cache:      memory.NewCacheWithClock(func() time.Time { return now }),
	}
	f.eval = NewEvaluator(Options{
		Streamers:  f.streamers,
		Cards:      f.cards,
		Samples:    f.samples,
		Thresholds: f.thresholds,
		Cache:      f.cache,
		Logger:     logging.Discard(),
		Now:        func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) addStreamer(t *testing.T, id string, approved bool, tier domain.Tier) {
	t.Helper()
	require.NoError(t, f.streamers.Insert(f.ctx, &domain.StreamerRecord{
		ID: id, Handle: "h_" + id, Approved: approved, CreatedAt: f.now.UnixMilli(),
	}))
	require.NoError(t, f.cards.Insert(f.ctx, &domain.Card{
		ID: "card_" + id, StreamerID: id, Tier: tier, MintBasePrice: domain.DefaultCardBasePriceLamports,
	}))
}

func (f *fixture) addSample(t *testing.T, id string, ageMs, viewers int64, gas, donations float64) {
	t.Helper()
	require.NoError(t, f.samples.Append(f.ctx, []*domain.MetricSample{{
		StreamerID: id, Timestamp: f.now.UnixMilli() - ageMs, Viewers: viewers, GasSpent: gas, Donations: donations,
	}}))
}

var scenarioThresholds = []domain.TierThreshold{
	{Tier: domain.TierBronze},
	{Tier: domain.TierSilver, MinViewers: 500, MinGas24h: 5, MinDonations24h: 1},
}

func TestEvaluateAndUpgrade_Scenario(t *testing.T) {
	f := newFixture(t, scenarioThresholds...)
	f.addStreamer(t, "s1", true, domain.TierBronze)
	f.addSample(t, "s1", 1000, 600, 6, 2)

	res, err := f.eval.EvaluateAndUpgrade(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 1, Upgraded: 1}, res)

	card, err := f.cards.GetByID(f.ctx, "card_s1")
	require.NoError(t, err)
	assert.Equal(t, domain.TierSilver, card.Tier)
	assert.Equal(t, f.now.UnixMilli(), card.UpdatedAt)

	// Second pass is a no-op.
	res, err = f.eval.EvaluateAndUpgrade(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 1}, res)
}

func TestEvaluateAndUpgrade_NeverDowngrades(t *testing.T) {
	f := newFixture(t, scenarioThresholds...)
	f.addStreamer(t, "s1", true, domain.TierGold)
	f.addSample(t, "s1", 1000, 1, 0, 0)

	res, err := f.eval.EvaluateAndUpgrade(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Upgraded)

	card, err := f.cards.GetByID(f.ctx, "card_s1")
	require.NoError(t, err)
	assert.Equal(t, domain.TierGold, card.Tier)
}

func TestEvaluateAndUpgrade_IgnoresOldSamplesAndUnapproved(t *testing.T) {
	f := newFixture(t, scenarioThresholds...)
	f.addStreamer(t, "old", true, domain.TierBronze)
	f.addSample(t, "old", domain.RollingWindowMs+1000, 10_000, 100, 100)
	f.addStreamer(t, "pending", false, domain.TierBronze)
	f.addSample(t, "pending", 1000, 10_000, 100, 100)

	res, err := f.eval.EvaluateAndUpgrade(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 1}, res)
}

func TestEvaluateAndUpgrade_MalformedThresholdCounted(t *testing.T) {
	f := newFixture(t, domain.TierThreshold{Tier: domain.TierSilver, MinViewers: -5})
	f.addStreamer(t, "a", true, domain.TierBronze)
	f.addStreamer(t, "b", true, domain.TierBronze)

	res, err := f.eval.EvaluateAndUpgrade(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 2, Errors: 2}, res)
}

func TestEvaluateAndUpgrade_NoThresholds(t *testing.T) {
	f := newFixture(t)
	res, err := f.eval.EvaluateAndUpgrade(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Errors: 1}, res)
}

func TestRecentUpgrades_NewestFirst(t *testing.T) {
	f := newFixture(t, scenarioThresholds...)
	f.addStreamer(t, "s1", true, domain.TierBronze)
	f.addSample(t, "s1", 1000, 600, 6, 2)
	_, err := f.eval.EvaluateAndUpgrade(f.ctx)
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	f.addStreamer(t, "s2", true, domain.TierBronze)
	f.addSample(t, "s2", 1000, 900, 9, 3)
	_, err = f.eval.EvaluateAndUpgrade(f.ctx)
	require.NoError(t, err)

	events, err := f.eval.RecentUpgrades(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "s2", events[0].StreamerID)
	assert.Equal(t, "h_s2", events[0].Handle)
	assert.Equal(t, domain.TierBronze, events[0].From)
	assert.Equal(t, domain.TierSilver, events[0].To)
	assert.InDelta(t, 900.0, events[0].Metrics.Viewers, 1e-9)
	assert.Equal(t, "s1", events[1].StreamerID)

	limited, err := f.eval.RecentUpgrades(f.ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
