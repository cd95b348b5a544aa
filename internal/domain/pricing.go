package domain

import (
	"errors"
	"fmt"
)

// Normalizer anchors a metric's concave score curve.
type Normalizer struct {
	P50 float64 `json:"p50" yaml:"p50"`
	P90 float64 `json:"p90" yaml:"p90"`
}

// PriceCaps bound the final price in SOL.
type PriceCaps struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// PricingWeights weight each performance factor.
type PricingWeights struct {
	Viewers      float64 `json:"viewers" yaml:"viewers"`
	Gas24h       float64 `json:"gas24h" yaml:"gas24h"`
	Donations24h float64 `json:"donations24h" yaml:"donations24h"`
	Demand       float64 `json:"demand" yaml:"demand"`
}

// PricingNormalizers holds one normalizer per metric.
type PricingNormalizers struct {
	Viewers      Normalizer `json:"viewers" yaml:"viewers"`
	Gas24h       Normalizer `json:"gas24h" yaml:"gas24h"`
	Donations24h Normalizer `json:"donations24h" yaml:"donations24h"`
}

// SurgeConfig parameterizes the surge tracker.
type SurgeConfig struct {
	WindowMin      int     `json:"windowMin" yaml:"window_min"`
	ThresholdMints int     `json:"thresholdMints" yaml:"threshold_mints"`
	MaxMultiplier  float64 `json:"maxMultiplier" yaml:"max_multiplier"`
	CooldownMin    int     `json:"cooldownMin" yaml:"cooldown_min"`
}

// PricingConfig is the global pricing singleton, stored as JSON under the
// pricing_config settings key.
type PricingConfig struct {
	BasePricesSOL map[Tier]float64   `json:"basePricesSOL" yaml:"base_prices_sol"`
	CapsSOL       PriceCaps          `json:"capsSOL" yaml:"caps_sol"`
	Weights       PricingWeights     `json:"weights" yaml:"weights"`
	Normalizers   PricingNormalizers `json:"normalizers" yaml:"normalizers"`
	Surge         SurgeConfig        `json:"surge" yaml:"surge"`
	Version       int64              `json:"version" yaml:"-"`
}

// PricingConfigKey is the settings key holding the pricing config.
const PricingConfigKey = "pricing_config"

// ErrInvalidPricingConfig is returned when a pricing config fails validation.
var ErrInvalidPricingConfig = errors.New("invalid pricing config")

// DefaultPricingConfig returns the launch pricing parameters.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		BasePricesSOL: map[Tier]float64{
			TierBronze:  0.01,
			TierSilver:  0.025,
			TierGold:    0.06,
			TierDiamond: 0.15,
			TierMythic:  0.40,
		},
		CapsSOL: PriceCaps{Min: 0.005, Max: 1.50},
		Weights: PricingWeights{Viewers: 0.35, Gas24h: 0.45, Donations24h: 0.10, Demand: 0.10},
		Normalizers: PricingNormalizers{
			Viewers:      Normalizer{P50: 300, P90: 3000},
			Gas24h:       Normalizer{P50: 10, P90: 150},
			Donations24h: Normalizer{P50: 2, P90: 25},
		},
		Surge: SurgeConfig{WindowMin: 15, ThresholdMints: 25, MaxMultiplier: 1.75, CooldownMin: 10},
	}
}

// Validate checks the config is usable for pricing and surge computation.
func (c *PricingConfig) Validate() error {
	if _, ok := c.BasePricesSOL[TierBronze]; !ok {
		return fmt.Errorf("%w: missing bronze base price", ErrInvalidPricingConfig)
	}
	for t, p := range c.BasePricesSOL {
		if !t.IsValid() || p < 0 {
			return fmt.Errorf("%w: base price for %q", ErrInvalidPricingConfig, t)
		}
	}
	if c.CapsSOL.Min < 0 || c.CapsSOL.Max < c.CapsSOL.Min {
		return fmt.Errorf("%w: caps min=%v max=%v", ErrInvalidPricingConfig, c.CapsSOL.Min, c.CapsSOL.Max)
	}
	w := c.Weights
	if w.Viewers < 0 || w.Gas24h < 0 || w.Donations24h < 0 || w.Demand < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidPricingConfig)
	}
	for name, n := range map[string]Normalizer{
		"viewers":      c.Normalizers.Viewers,
		"gas24h":       c.Normalizers.Gas24h,
		"donations24h": c.Normalizers.Donations24h,
	} {
		if n.P50 <= 0 || n.P90 <= n.P50 {
			return fmt.Errorf("%w: normalizer %s requires 0 < p50 < p90", ErrInvalidPricingConfig, name)
		}
	}
	s := c.Surge
	if s.WindowMin <= 0 || s.ThresholdMints <= 0 || s.CooldownMin <= 0 || s.MaxMultiplier < 1 {
		return fmt.Errorf("%w: surge parameters", ErrInvalidPricingConfig)
	}
	return nil
}

// BasePrice returns the tier's base price, falling back to bronze.
func (c *PricingConfig) BasePrice(t Tier) float64 {
	if p, ok := c.BasePricesSOL[t]; ok {
		return p
	}
	return c.BasePricesSOL[TierBronze]
}
