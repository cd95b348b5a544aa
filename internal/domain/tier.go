package domain

import "strings"

// Tier is a card rarity rank.
type Tier string

const (
	TierBronze  Tier = "bronze"
	TierSilver  Tier = "silver"
	TierGold    Tier = "gold"
	TierDiamond Tier = "diamond"
	TierMythic  Tier = "mythic"
)

// TierOrder lists tiers from lowest to highest rank.
var TierOrder = []Tier{TierBronze, TierSilver, TierGold, TierDiamond, TierMythic}

// ParseTier normalizes a tier name. Unknown names return ("", false).
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if t.Rank() < 0 {
		return "", false
	}
	return t, true
}

// Rank returns the tier's index in TierOrder, or -1 if unknown.
func (t Tier) Rank() int {
	for i, o := range TierOrder {
		if o == t {
			return i
		}
	}
	return -1
}

// IsValid checks if the tier is one of the known ranks.
func (t Tier) IsValid() bool {
	return t.Rank() >= 0
}

// String returns the string representation of Tier.
func (t Tier) String() string {
	return string(t)
}
