package domain

// SurgeState is the cached per-card surge multiplier.
type SurgeState struct {
	Multiplier float64 `json:"multiplier"`
	MintCount  int     `json:"mint_count"`
	ExpiresAt  int64   `json:"expires_at"` // ms
}

// SurgeData describes an active surge for observability.
type SurgeData struct {
	CardID          string  `json:"card_id"`
	RecentMints     int     `json:"recent_mints"`
	SurgeMultiplier float64 `json:"surge_multiplier"`
	WindowStart     int64   `json:"window_start"`   // ms
	CooldownUntil   int64   `json:"cooldown_until"` // ms
}

// UpgradeEvent records a committed tier upgrade.
type UpgradeEvent struct {
	StreamerID string         `json:"streamer_id"`
	Handle     string         `json:"handle,omitempty"`
	From       Tier           `json:"from"`
	To         Tier           `json:"to"`
	Timestamp  int64          `json:"timestamp"` // ms
	Metrics    UpgradeMetrics `json:"metrics"`
}

// UpgradeMetrics snapshots the metrics that triggered an upgrade.
type UpgradeMetrics struct {
	Viewers   float64 `json:"viewers"`
	Gas       float64 `json:"gas"`
	Donations float64 `json:"donations"`
}
