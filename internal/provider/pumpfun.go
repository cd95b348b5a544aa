package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pumpcards/internal/domain"
)

const maxPumpFunRecords = 20

// embeddedArray finds JSON arrays embedded in the live page markup.
var embeddedArray = regexp.MustCompile(`"(?:streams|live|tokens)"\s*:\s*\[`)

// PumpFunProvider reads currently-live coins from pump.fun.
// JSON endpoints are tried in order; the live page is scraped when none answers.
type PumpFunProvider struct {
	enabled     bool
	endpoints   []string
	livePageURL string
	fetcher     *Fetcher
	logger      logrus.FieldLogger
	now         func() time.Time
}

// NewPumpFunProvider creates the pump.fun adapter.
func NewPumpFunProvider(enabled bool, endpoints []string, livePageURL string, fetcher *Fetcher, logger logrus.FieldLogger) *PumpFunProvider {
	return &PumpFunProvider{
		enabled:     enabled && (len(endpoints) > 0 || livePageURL != ""),
		endpoints:   endpoints,
		livePageURL: livePageURL,
		fetcher:     fetcher,
		logger:      logger.WithField("provider", "pump.fun"),
		now:         time.Now,
	}
}

func (p *PumpFunProvider) Name() string    { return "pump.fun" }
func (p *PumpFunProvider) Enabled() bool   { return p.enabled }
func (p *PumpFunProvider) Synthetic() bool { return false }

// FetchStreamers implements Provider.
func (p *PumpFunProvider) FetchStreamers(ctx context.Context) ([]domain.NormalizedRecord, error) {
	if !p.enabled {
		return nil, ErrDisabled
	}

	var errs []error
	for _, endpoint := range p.endpoints {
		var items []map[string]any
		if err := p.fetcher.GetJSON(ctx, endpoint, &items); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.WithError(err).WithField("endpoint", endpoint).Debug("Endpoint unavailable")
			errs = append(errs, fmt.Errorf("%s: %w", endpoint, err))
			continue
		}
		if len(items) > 0 {
			return p.transform(items), nil
		}
	}

	if p.livePageURL == "" {
		return nil, fmt.Errorf("pump.fun endpoints failed: %w", errors.Join(errs...))
	}

	html, err := p.fetcher.GetText(ctx, p.livePageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch live page: %w", err)
	}
	items := extractEmbeddedArray(html)
	if items == nil {
		return nil, fmt.Errorf("no stream data found on live page")
	}
	return p.transform(items), nil
}

func (p *PumpFunProvider) transform(items []map[string]any) []domain.NormalizedRecord {
	now := p.now()
	if len(items) > maxPumpFunRecords {
		items = items[:maxPumpFunRecords]
	}
	out := make([]domain.NormalizedRecord, 0, len(items))
	for _, item := range items {
		rec := parseRaw(item, pumpFunFields, p.Name(), now)
		if !Sanitize(&rec) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// extractEmbeddedArray returns the first non-empty array of objects found under a
// "streams", "live" or "tokens" key in the page source.
func extractEmbeddedArray(html string) []map[string]any {
	for _, loc := range embeddedArray.FindAllStringIndex(html, -1) {
		start := loc[1] - 1
		dec := json.NewDecoder(strings.NewReader(html[start:]))
		var items []map[string]any
		if err := dec.Decode(&items); err != nil {
			continue
		}
		if len(items) > 0 {
			return items
		}
	}
	return nil
}
