package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pumpcards/internal/domain"
)

// HeliusProvider derives on-chain activity for a configured set of token mints.
// Gas is the sum of transaction fees over the last 24h, volume the sum of native
// transfers, holders the number of token balances. Helius has no viewer data.
type HeliusProvider struct {
	apiKey  string
	baseURL string
	mints   []string
	fetcher *Fetcher
	logger  logrus.FieldLogger
	now     func() time.Time
}

// NewHeliusProvider creates the Helius adapter. It is disabled without an API key.
func NewHeliusProvider(apiKey, baseURL string, mints []string, fetcher *Fetcher, logger logrus.FieldLogger) *HeliusProvider {
	return &HeliusProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		mints:   mints,
		fetcher: fetcher,
		logger:  logger.WithField("provider", "helius"),
		now:     time.Now,
	}
}

func (p *HeliusProvider) Name() string    { return "helius" }
func (p *HeliusProvider) Enabled() bool   { return p.apiKey != "" }
func (p *HeliusProvider) Synthetic() bool { return false }

type heliusMetadata struct {
	Account         string `json:"account"`
	OnChainMetadata *struct {
		Metadata struct {
			Data struct {
				Name string `json:"name"`
			} `json:"data"`
		} `json:"metadata"`
	} `json:"onChainMetadata"`
	OffChainMetadata *struct {
		Metadata struct {
			Name  string `json:"name"`
			Image string `json:"image"`
		} `json:"metadata"`
	} `json:"offChainMetadata"`
	LegacyMetadata *struct {
		Name    string `json:"name"`
		LogoURI string `json:"logoURI"`
	} `json:"legacyMetadata"`
}

func (m *heliusMetadata) name() string {
	switch {
	case m.OnChainMetadata != nil && m.OnChainMetadata.Metadata.Data.Name != "":
		return m.OnChainMetadata.Metadata.Data.Name
	case m.OffChainMetadata != nil && m.OffChainMetadata.Metadata.Name != "":
		return m.OffChainMetadata.Metadata.Name
	case m.LegacyMetadata != nil:
		return m.LegacyMetadata.Name
	}
	return ""
}

func (m *heliusMetadata) image() string {
	switch {
	case m.OffChainMetadata != nil && m.OffChainMetadata.Metadata.Image != "":
		return m.OffChainMetadata.Metadata.Image
	case m.LegacyMetadata != nil:
		return m.LegacyMetadata.LogoURI
	}
	return ""
}

type heliusTransaction struct {
	Signature       string `json:"signature"`
	Fee             int64  `json:"fee"`
	Timestamp       int64  `json:"timestamp"`
	NativeTransfers []struct {
		Amount int64 `json:"amount"`
	} `json:"nativeTransfers"`
}

type heliusBalances struct {
	Tokens []struct {
		Mint string `json:"mint"`
	} `json:"tokens"`
}

// FetchStreamers implements Provider.
func (p *HeliusProvider) FetchStreamers(ctx context.Context) ([]domain.NormalizedRecord, error) {
	if !p.Enabled() {
		return nil, ErrDisabled
	}

	var out []domain.NormalizedRecord
	var errs []error
	for _, mint := range p.mints {
		if !ValidTokenAddress(mint) {
			p.logger.WithField("mint", mint).Warn("Skipping invalid mint address")
			continue
		}
		rec, err := p.fetchMint(ctx, mint)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.WithError(err).WithField("mint", mint).Warn("Failed to fetch mint")
			errs = append(errs, err)
			continue
		}
		if Sanitize(rec) {
			out = append(out, *rec)
		}
	}

	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (p *HeliusProvider) fetchMint(ctx context.Context, mint string) (*domain.NormalizedRecord, error) {
	var meta []heliusMetadata
	if err := p.fetcher.PostJSON(ctx, p.url("/v0/token-metadata", nil), map[string]any{
		"mintAccounts": []string{mint},
	}, &meta); err != nil {
		return nil, fmt.Errorf("token metadata: %w", err)
	}
	if len(meta) == 0 {
		return nil, fmt.Errorf("token metadata: empty response for %s", mint)
	}

	var txs []heliusTransaction
	if err := p.fetcher.GetJSON(ctx, p.url("/v0/addresses/"+mint+"/transactions", url.Values{"limit": {"100"}}), &txs); err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}

	var balances heliusBalances
	if err := p.fetcher.GetJSON(ctx, p.url("/v0/addresses/"+mint+"/balances", nil), &balances); err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}

	now := p.now()
	since := now.Add(-24 * time.Hour).Unix()
	var feeLamports, transferLamports, lastSeen int64
	for _, tx := range txs {
		if tx.Timestamp < since {
			continue
		}
		feeLamports += tx.Fee
		for _, nt := range tx.NativeTransfers {
			transferLamports += nt.Amount
		}
		if tx.Timestamp > lastSeen {
			lastSeen = tx.Timestamp
		}
	}

	handle := NormalizeHandle(meta[0].name())
	if handle == "" {
		handle = "Token" + mint[:6]
	}
	avatar := meta[0].image()
	if avatar == "" {
		avatar = AvatarURL(mint)
	}
	token := mint
	rec := &domain.NormalizedRecord{
		Handle:       handle,
		TokenAddress: &token,
		AvatarURL:    &avatar,
		Gas:          float64(feeLamports) / lamportsPerSOL,
		Volume:       float64(transferLamports) / lamportsPerSOL,
		Holders:      int64(len(balances.Tokens)),
		LastSeen:     toMillis(float64(lastSeen)),
		Source:       p.Name(),
	}
	if rec.LastSeen == 0 {
		rec.LastSeen = now.UnixMilli()
	}
	return rec, nil
}

func (p *HeliusProvider) url(path string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api-key", p.apiKey)
	return p.baseURL + path + "?" + q.Encode()
}
