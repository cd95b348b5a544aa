package domain

// NormalizedRecord is the shape every provider adapter must produce.
type NormalizedRecord struct {
	Handle       string
	TokenAddress *string
	AvatarURL    *string
	Viewers      int64
	Gas          float64 // SOL
	Donations    float64 // SOL
	Volume       float64 // SOL
	Holders      int64
	LastSeen     int64 // ms
	Source       string
}

// HasNegative reports whether any numeric field is negative.
func (r *NormalizedRecord) HasNegative() bool {
	return r.Viewers < 0 || r.Gas < 0 || r.Donations < 0 || r.Volume < 0 || r.Holders < 0
}
