package domain

// TierThreshold holds the minimums a streamer must clear for a tier.
// Corresponds to tier_thresholds table in PostgreSQL.
type TierThreshold struct {
	Tier            Tier
	MinViewers      float64
	MinGas24h       float64
	MinDonations24h float64
	UpdatedAt       int64 // ms
}

// DefaultThresholds seeds a fresh deployment.
func DefaultThresholds() []TierThreshold {
	return []TierThreshold{
		{Tier: TierBronze, MinViewers: 0, MinGas24h: 0, MinDonations24h: 0},
		{Tier: TierSilver, MinViewers: 500, MinGas24h: 5, MinDonations24h: 1},
		{Tier: TierGold, MinViewers: 1500, MinGas24h: 25, MinDonations24h: 5},
		{Tier: TierDiamond, MinViewers: 5000, MinGas24h: 100, MinDonations24h: 20},
		{Tier: TierMythic, MinViewers: 15000, MinGas24h: 400, MinDonations24h: 75},
	}
}
