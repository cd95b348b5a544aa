package domain

// PriceQuote is a signed, short-lived price commitment.
// Corresponds to price_quotes table in PostgreSQL.
type PriceQuote struct {
	ID            string
	CardID        string
	PriceLamports int64
	Signature     string // hex HMAC-SHA256
	ExpiresAt     int64  // ms
	CreatedAt     int64  // ms
}

// MintRecord is produced when a quote is redeemed.
// Corresponds to mints table in PostgreSQL.
type MintRecord struct {
	ID            string
	CardID        string
	QuoteID       string
	OwnerPubkey   string
	PaymentProof  string
	PriceLamports int64
	Edition       int64
	CreatedAt     int64 // ms
}

// MintActivity is one mint event used for surge detection.
type MintActivity struct {
	CardID   string
	MintedAt int64 // ms
}
