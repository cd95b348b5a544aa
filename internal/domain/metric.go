package domain

// MetricSample is one append-only observation of a streamer's activity.
// Corresponds to metric_samples table (PostgreSQL or ClickHouse).
type MetricSample struct {
	StreamerID string
	Timestamp  int64 // ms
	Viewers    int64
	GasSpent   float64 // SOL
	Donations  float64 // SOL
	Volume     float64 // SOL
	Holders    int64
}

// RollingMetrics aggregates samples over a trailing window.
type RollingMetrics struct {
	StreamerID   string
	AvgViewers   float64
	GasSum       float64
	DonationsSum float64
	VolumeSum    float64
	MaxHolders   int64
	SampleCount  int
}

// RollingWindowMs is the default trailing window for aggregates (24h).
const RollingWindowMs int64 = 24 * 60 * 60 * 1000
