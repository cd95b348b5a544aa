// Package tier evaluates rolling metrics against tier thresholds and commits
// one-way tier upgrades.
package tier

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"pumpcards/internal/domain"
)

// ErrMalformedThreshold is returned when a threshold row cannot be evaluated.
var ErrMalformedThreshold = errors.New("malformed tier threshold")

// EligibleTier returns the highest-ranked tier whose minimums are all met.
// Each rank is checked on its own bar; lower ranks are not required.
// Bronze is returned when no row is met.
func EligibleTier(thresholds []domain.TierThreshold, m domain.RollingMetrics) (domain.Tier, error) {
	rows := make([]domain.TierThreshold, len(thresholds))
	copy(rows, thresholds)
	for _, t := range rows {
		if err := ValidateThreshold(t); err != nil {
			return "", err
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Tier.Rank() < rows[j].Tier.Rank() })

	eligible := domain.TierBronze
	for _, t := range rows {
		if m.AvgViewers >= t.MinViewers &&
			m.GasSum >= t.MinGas24h &&
			m.DonationsSum >= t.MinDonations24h {
			eligible = t.Tier
		}
	}
	return eligible, nil
}

// IsUpgrade reports whether next ranks strictly above current.
// Unknown tiers never upgrade and are never upgraded to.
func IsUpgrade(current, next domain.Tier) bool {
	if !next.IsValid() {
		return false
	}
	return next.Rank() > current.Rank()
}

// ValidateThreshold rejects unknown tiers and negative or non-finite minimums.
func ValidateThreshold(t domain.TierThreshold) error {
	if !t.Tier.IsValid() {
		return fmt.Errorf("%w: unknown tier %q", ErrMalformedThreshold, t.Tier)
	}
	for _, v := range []float64{t.MinViewers, t.MinGas24h, t.MinDonations24h} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s has invalid minimum %v", ErrMalformedThreshold, t.Tier, v)
		}
	}
	return nil
}

var benefits = map[domain.Tier][]string{
	domain.TierBronze: {
		"Base card design",
		"Standard mint price",
		"Basic metadata",
	},
	domain.TierSilver: {
		"Enhanced card effects",
		"Metallic finish",
		"Increased mint value",
		"Priority marketplace features",
	},
	domain.TierGold: {
		"Animated card backgrounds",
		"Foil treatment",
		"Higher resale value",
		"Special edition variants",
	},
	domain.TierDiamond: {
		"Holographic effects",
		"Premium animations",
		"Exclusive marketplace access",
		"Limited edition status",
	},
	domain.TierMythic: {
		"Ultra-rare status",
		"Maximum visual effects",
		"Highest market value",
		"VIP community access",
		"Special streamer perks",
	},
}

// Benefits lists the perks of a tier. Unknown tiers get the bronze list.
func Benefits(t domain.Tier) []string {
	b, ok := benefits[t]
	if !ok {
		b = benefits[domain.TierBronze]
	}
	out := make([]string, len(b))
	copy(out, b)
	return out
}
