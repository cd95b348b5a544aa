package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pumpcards/internal/domain"
	"pumpcards/internal/observability"
	"pumpcards/internal/storage"
)

// Summary reports the outcome of persisting one batch of records.
type Summary struct {
	Discovered int `json:"discovered"`
	Processed  int `json:"processed"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Backfilled int `json:"backfilled"`
	Errors     int `json:"errors"`
}

// ManualRecord is one operator-supplied streamer. Absent metrics are nil.
type ManualRecord struct {
	Handle       string   `json:"handle"`
	TokenAddress *string  `json:"token_ca,omitempty"`
	AvatarURL    *string  `json:"avatar_url,omitempty"`
	Viewers      *int64   `json:"viewers,omitempty"`
	Gas          *float64 `json:"gas_sol,omitempty"`
	Donations    *float64 `json:"donations_sol,omitempty"`
	Volume       *float64 `json:"volume_sol,omitempty"`
	Holders      *int64   `json:"holders,omitempty"`
}

func (m *ManualRecord) hasMetrics() bool {
	return m.Viewers != nil || m.Gas != nil || m.Donations != nil || m.Volume != nil || m.Holders != nil
}

// Persister writes reconciled records as streamers, cards and metric samples.
type Persister struct {
	streamers storage.StreamerStore
	cards     storage.CardStore
	samples   storage.MetricSampleStore
	logger    logrus.FieldLogger
	now       func() time.Time
}

// PersisterOptions for creating Persister.
type PersisterOptions struct {
	Streamers storage.StreamerStore
	Cards     storage.CardStore
	Samples   storage.MetricSampleStore
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

// NewPersister creates a Persister.
func NewPersister(opts PersisterOptions) *Persister {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Persister{
		streamers: opts.Streamers,
		cards:     opts.Cards,
		samples:   opts.Samples,
		logger:    opts.Logger,
		now:       now,
	}
}

// Persist upserts a streamer per record and appends one sample per record.
// New streamers get approved=autoApprove and a bronze card. Per-record failures
// are counted and logged; only the batch sample write can fail the whole call.
func (p *Persister) Persist(ctx context.Context, records []domain.NormalizedRecord, autoApprove bool) (Summary, error) {
	sum := Summary{Discovered: len(records)}
	ts := p.now().UnixMilli()
	samples := make([]*domain.MetricSample, 0, len(records))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		s, created, backfilled, err := p.ensureStreamer(ctx, rec.Handle, rec.TokenAddress, rec.AvatarURL, autoApprove)
		if err != nil {
			sum.Errors++
			p.logger.WithError(err).WithField("handle", rec.Handle).Warn("Failed to persist streamer")
			continue
		}
		switch {
		case created:
			sum.Created++
		default:
			sum.Updated++
		}
		if backfilled {
			sum.Backfilled++
		}

		samples = append(samples, &domain.MetricSample{
			StreamerID: s.ID,
			Timestamp:  ts,
			Viewers:    rec.Viewers,
			GasSpent:   rec.Gas,
			Donations:  rec.Donations,
			Volume:     rec.Volume,
			Holders:    rec.Holders,
		})
		sum.Processed++
	}

	if len(samples) > 0 {
		if err := p.samples.Append(ctx, samples); err != nil {
			sum.Errors += len(samples)
			return sum, fmt.Errorf("append samples: %w", err)
		}
	}

	observability.RecordPersist(sum.Created, sum.Backfilled, len(samples))
	return sum, nil
}

// IngestManual creates missing streamers (approved, with a bronze card) and appends
// a sample for records carrying at least one metric. Records without a handle are skipped.
func (p *Persister) IngestManual(ctx context.Context, records []ManualRecord) (Summary, error) {
	sum := Summary{Discovered: len(records), Processed: len(records)}
	ts := p.now().UnixMilli()
	var samples []*domain.MetricSample

	for _, rec := range records {
		if rec.Handle == "" {
			continue
		}
		s, created, backfilled, err := p.ensureStreamer(ctx, rec.Handle, rec.TokenAddress, rec.AvatarURL, true)
		if err != nil {
			sum.Errors++
			p.logger.WithError(err).WithField("handle", rec.Handle).Warn("Failed to ingest streamer")
			continue
		}
		if created {
			sum.Created++
		} else {
			sum.Updated++
		}
		if backfilled {
			sum.Backfilled++
		}

		if rec.hasMetrics() {
			samples = append(samples, &domain.MetricSample{
				StreamerID: s.ID,
				Timestamp:  ts,
				Viewers:    derefOr(rec.Viewers, 0),
				GasSpent:   derefOr(rec.Gas, 0),
				Donations:  derefOr(rec.Donations, 0),
				Volume:     derefOr(rec.Volume, 0),
				Holders:    derefOr(rec.Holders, 0),
			})
		}
	}

	if len(samples) > 0 {
		if err := p.samples.Append(ctx, samples); err != nil {
			return sum, fmt.Errorf("append samples: %w", err)
		}
	}
	return sum, nil
}

// EnsureCard creates the streamer's bronze card if it does not exist yet.
func (p *Persister) EnsureCard(ctx context.Context, streamerID string) (*domain.Card, error) {
	card, err := p.cards.GetByStreamerID(ctx, streamerID)
	if err == nil {
		return card, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("get card: %w", err)
	}

	now := p.now().UnixMilli()
	card = &domain.Card{
		ID:            uuid.NewString(),
		StreamerID:    streamerID,
		Tier:          domain.TierBronze,
		MintBasePrice: domain.DefaultCardBasePriceLamports,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := p.cards.Insert(ctx, card); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return p.cards.GetByStreamerID(ctx, streamerID)
		}
		return nil, fmt.Errorf("insert card: %w", err)
	}
	return card, nil
}

// ensureStreamer finds or creates the streamer matching handle or token address.
func (p *Persister) ensureStreamer(ctx context.Context, handle string, token, avatar *string, approved bool) (*domain.StreamerRecord, bool, bool, error) {
	existing, err := p.streamers.FindByHandleOrToken(ctx, handle, token)
	if err == nil {
		changed, err := p.streamers.FillMissing(ctx, existing.ID, token, avatar)
		if err != nil {
			return nil, false, false, fmt.Errorf("backfill streamer: %w", err)
		}
		// Repairs a streamer whose card insert failed on an earlier cycle.
		if _, err := p.EnsureCard(ctx, existing.ID); err != nil {
			return nil, false, false, err
		}
		return existing, false, changed, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, false, fmt.Errorf("find streamer: %w", err)
	}

	now := p.now().UnixMilli()
	s := &domain.StreamerRecord{
		ID:           uuid.NewString(),
		Handle:       handle,
		TokenAddress: nonEmpty(token),
		AvatarURL:    nonEmpty(avatar),
		Approved:     approved,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.streamers.Insert(ctx, s); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Created concurrently by an overlapping cycle.
			existing, ferr := p.streamers.FindByHandleOrToken(ctx, handle, token)
			if ferr != nil {
				return nil, false, false, fmt.Errorf("find streamer after conflict: %w", ferr)
			}
			return existing, false, false, nil
		}
		return nil, false, false, fmt.Errorf("insert streamer: %w", err)
	}

	if _, err := p.EnsureCard(ctx, s.ID); err != nil {
		return nil, false, false, err
	}
	return s, true, false, nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

func derefOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
