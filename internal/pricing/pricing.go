// Package pricing computes card mint prices from tier, rolling performance and surge.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"pumpcards/internal/domain"
)

// FallbackPriceLamports is charged when the price cannot be computed.
const FallbackPriceLamports int64 = 10_000_000

// LamportsPerSOL scales SOL prices to the smallest unit.
var LamportsPerSOL = decimal.NewFromInt(1_000_000_000)

// demandMultiplier is the demand factor weighted by Weights.Demand.
const demandMultiplier = 1.0

// Normalize maps v onto [0, 1] with a concave curve anchored at p50 (0.5) and p90 (0.9).
// Values above p90 approach but never exceed 1.
func Normalize(v float64, n domain.Normalizer) float64 {
	if v <= 0 || math.IsNaN(v) || n.P50 <= 0 || n.P90 <= n.P50 {
		return 0
	}
	switch {
	case v <= n.P50:
		return v / n.P50 * 0.5
	case v <= n.P90:
		return 0.5 + (v-n.P50)/(n.P90-n.P50)*0.4
	default:
		return 0.9 + math.Min(0.1, (v-n.P90)/n.P90*0.1)
	}
}

// Scores holds the normalized score of each metric.
type Scores struct {
	Viewers   float64 `json:"viewers"`
	Gas       float64 `json:"gas24h"`
	Donations float64 `json:"donations24h"`
}

// Breakdown explains a computed price.
type Breakdown struct {
	CardID      string      `json:"card_id,omitempty"`
	Tier        domain.Tier `json:"tier"`
	BaseSOL     float64     `json:"base_sol"`
	Scores      Scores      `json:"scores"`
	Performance float64     `json:"performance_multiplier"`
	Surge       float64     `json:"surge_multiplier"`
	RawSOL      float64     `json:"raw_sol"`
	PriceSOL    float64     `json:"price_sol"`
	Lamports    int64       `json:"price_lamports"`
	Fallback    bool        `json:"fallback,omitempty"`
}

// Compute prices a card of the given tier. The result is deterministic for fixed
// inputs and always within cfg's caps. A surge below 1 is treated as 1.
func Compute(cfg domain.PricingConfig, tier domain.Tier, m domain.RollingMetrics, surge float64) Breakdown {
	if surge < 1 || math.IsNaN(surge) || math.IsInf(surge, 0) {
		surge = 1
	}

	scores := Scores{
		Viewers:   Normalize(m.AvgViewers, cfg.Normalizers.Viewers),
		Gas:       Normalize(m.GasSum, cfg.Normalizers.Gas24h),
		Donations: Normalize(m.DonationsSum, cfg.Normalizers.Donations24h),
	}
	w := cfg.Weights
	perf := weighted(scores.Viewers, w.Viewers).
		Add(weighted(scores.Gas, w.Gas24h)).
		Add(weighted(scores.Donations, w.Donations24h)).
		Add(weighted(demandMultiplier, w.Demand))

	base := cfg.BasePrice(tier)
	raw := decimal.NewFromFloat(base).
		Mul(perf).
		Mul(decimal.NewFromFloat(surge))

	minCap := decimal.NewFromFloat(cfg.CapsSOL.Min)
	maxCap := decimal.NewFromFloat(cfg.CapsSOL.Max)
	clamped := decimal.Max(minCap, decimal.Min(maxCap, raw))

	performance, _ := perf.Float64()
	rawSOL, _ := raw.Float64()
	priceSOL, _ := clamped.Float64()
	return Breakdown{
		Tier:        tier,
		BaseSOL:     base,
		Scores:      scores,
		Performance: performance,
		Surge:       surge,
		RawSOL:      rawSOL,
		PriceSOL:    priceSOL,
		Lamports:    clamped.Mul(LamportsPerSOL).Floor().IntPart(),
	}
}

func weighted(score, weight float64) decimal.Decimal {
	return decimal.NewFromFloat(score).Mul(decimal.NewFromFloat(weight))
}

// Fallback returns the safe default price breakdown.
func Fallback(cardID string, tier domain.Tier) Breakdown {
	sol, _ := decimal.NewFromInt(FallbackPriceLamports).Div(LamportsPerSOL).Float64()
	return Breakdown{
		CardID:   cardID,
		Tier:     tier,
		Surge:    1,
		PriceSOL: sol,
		Lamports: FallbackPriceLamports,
		Fallback: true,
	}
}
