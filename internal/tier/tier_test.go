package tier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpcards/internal/domain"
)

func TestEligibleTier_Scenario(t *testing.T) {
	thresholds := []domain.TierThreshold{
		{Tier: domain.TierBronze},
		{Tier: domain.TierSilver, MinViewers: 500, MinGas24h: 5, MinDonations24h: 1},
	}
	got, err := EligibleTier(thresholds, domain.RollingMetrics{AvgViewers: 600, GasSum: 6, DonationsSum: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.TierSilver, got)
}

func TestEligibleTier_EachRankOnItsOwnBar(t *testing.T) {
	// Gold is met while silver is not: gold wins.
	thresholds := []domain.TierThreshold{
		{Tier: domain.TierGold, MinViewers: 100, MinGas24h: 1, MinDonations24h: 0},
		{Tier: domain.TierSilver, MinViewers: 50, MinGas24h: 1, MinDonations24h: 10},
		{Tier: domain.TierBronze},
	}
	got, err := EligibleTier(thresholds, domain.RollingMetrics{AvgViewers: 150, GasSum: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.TierGold, got)
}

func TestEligibleTier_NoneMet(t *testing.T) {
	got, err := EligibleTier(domain.DefaultThresholds()[1:], domain.RollingMetrics{})
	require.NoError(t, err)
	assert.Equal(t, domain.TierBronze, got)
}

func TestEligibleTier_Malformed(t *testing.T) {
	_, err := EligibleTier([]domain.TierThreshold{{Tier: "platinum"}}, domain.RollingMetrics{})
	assert.True(t, errors.Is(err, ErrMalformedThreshold))

	_, err = EligibleTier([]domain.TierThreshold{{Tier: domain.TierGold, MinGas24h: -1}}, domain.RollingMetrics{})
	assert.True(t, errors.Is(err, ErrMalformedThreshold))
}

func TestIsUpgrade(t *testing.T) {
	assert.True(t, IsUpgrade(domain.TierBronze, domain.TierSilver))
	assert.True(t, IsUpgrade(domain.TierGold, domain.TierMythic))
	assert.False(t, IsUpgrade(domain.TierGold, domain.TierSilver))
	assert.False(t, IsUpgrade(domain.TierGold, domain.TierGold))
	assert.False(t, IsUpgrade(domain.TierBronze, "platinum"))
}

func TestBenefits(t *testing.T) {
	assert.Len(t, Benefits(domain.TierMythic), 5)
	assert.Equal(t, Benefits(domain.TierBronze), Benefits("unknown"))

	b := Benefits(domain.TierGold)
	b[0] = "mutated"
	assert.NotEqual(t, "mutated", Benefits(domain.TierGold)[0])
}
