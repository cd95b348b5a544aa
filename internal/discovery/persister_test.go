package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpcards/internal/domain"
	"pumpcards/internal/logging"
	"pumpcards/internal/storage"
	"pumpcards/internal/storage/memory"
)

type testStores struct {
	streamers *memory.StreamerStore
	cards     *memory.CardStore
	samples   *memory.MetricSampleStore
}

func newTestPersister(now time.Time) (*Persister, testStores) {
	st := testStores{
		streamers: memory.NewStreamerStore(),
		cards:     memory.NewCardStore(),
		samples:   memory.NewMetricSampleStore(),
	}
	p := NewPersister(PersisterOptions{
		Streamers: st.streamers,
		Cards:     st.cards,
		Samples:   st.samples,
		Logger:    logging.Discard(),
		Now:       func() time.Time { return now },
	})
	return p, st
}

func TestPersister_CreatesStreamerCardAndSample(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	p, st := newTestPersister(now)

	sum, err := p.Persist(ctx, []domain.NormalizedRecord{
		{Handle: "alice", TokenAddress: strPtr("T1"), Viewers: 600, Gas: 6, Donations: 2},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, Summary{Discovered: 1, Processed: 1, Created: 1}, sum)

	s, err := st.streamers.FindByHandleOrToken(ctx, "alice", nil)
	require.NoError(t, err)
	assert.True(t, s.Approved)

	card, err := st.cards.GetByStreamerID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierBronze, card.Tier)
	assert.Equal(t, domain.DefaultCardBasePriceLamports, card.MintBasePrice)

	rolling, err := st.samples.Rolling(ctx, s.ID, now.UnixMilli()-domain.RollingWindowMs)
	require.NoError(t, err)
	assert.Equal(t, 1, rolling.SampleCount)
	assert.InDelta(t, 600.0, rolling.AvgViewers, 1e-9)
}

func TestPersister_IdempotentAndBackfills(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	p, st := newTestPersister(now)

	_, err := p.Persist(ctx, []domain.NormalizedRecord{{Handle: "Bob", Viewers: 1}}, false)
	require.NoError(t, err)

	sum, err := p.Persist(ctx, []domain.NormalizedRecord{
		{Handle: "bob", TokenAddress: strPtr("T9"), AvatarURL: strPtr("https://img/bob.png"), Viewers: 3},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Created)
	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, 1, sum.Backfilled)

	// A populated avatar is never overwritten.
	sum, err = p.Persist(ctx, []domain.NormalizedRecord{
		{Handle: "other", TokenAddress: strPtr("T9"), AvatarURL: strPtr("https://img/new.png")},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Created)
	assert.Equal(t, 0, sum.Backfilled)

	s, err := st.streamers.FindByHandleOrToken(ctx, "bob", nil)
	require.NoError(t, err)
	assert.False(t, s.Approved)
	assert.Equal(t, "Bob", s.Handle)
	require.NotNil(t, s.AvatarURL)
	assert.Equal(t, "https://img/bob.png", *s.AvatarURL)

	rolling, err := st.samples.Rolling(ctx, s.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, rolling.SampleCount)
}

func TestPersister_IngestManual(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPersister(time.UnixMilli(1_700_000_000_000))
	viewers := int64(42)

	sum, err := p.IngestManual(ctx, []ManualRecord{
		{Handle: "carol", Viewers: &viewers},
		{Handle: "dave"},
		{Handle: ""},
		{Handle: "carol"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Processed)
	assert.Equal(t, 2, sum.Created)
	assert.Equal(t, 1, sum.Updated)

	carol, err := st.streamers.FindByHandleOrToken(ctx, "carol", nil)
	require.NoError(t, err)
	assert.True(t, carol.Approved)
	rolling, err := st.samples.Rolling(ctx, carol.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, rolling.SampleCount)

	dave, err := st.streamers.FindByHandleOrToken(ctx, "dave", nil)
	require.NoError(t, err)
	rolling, err = st.samples.Rolling(ctx, dave.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, rolling.SampleCount)
}

func TestPersister_EnsureCardIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPersister(time.UnixMilli(1))

	c1, err := p.EnsureCard(ctx, "s1")
	require.NoError(t, err)
	c2, err := p.EnsureCard(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID)
}

// failingCardStore fails the next n inserts.
type failingCardStore struct {
	*memory.CardStore
	failures int
}

func (f *failingCardStore) Insert(ctx context.Context, c *domain.Card) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("card insert failed")
	}
	return f.CardStore.Insert(ctx, c)
}

func TestPersister_RepairsMissingCardOnNextCycle(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	streamers := memory.NewStreamerStore()
	cards := &failingCardStore{CardStore: memory.NewCardStore(), failures: 1}
	p := NewPersister(PersisterOptions{
		Streamers: streamers,
		Cards:     cards,
		Samples:   memory.NewMetricSampleStore(),
		Logger:    logging.Discard(),
		Now:       func() time.Time { return now },
	})
	recs := []domain.NormalizedRecord{{Handle: "carol", Viewers: 10}}

	sum, err := p.Persist(ctx, recs, true)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Errors)

	s, err := streamers.FindByHandleOrToken(ctx, "carol", nil)
	require.NoError(t, err)
	_, err = cards.GetByStreamerID(ctx, s.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	sum, err = p.Persist(ctx, recs, true)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Errors)
	assert.Equal(t, 1, sum.Updated)

	card, err := cards.GetByStreamerID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierBronze, card.Tier)
}
