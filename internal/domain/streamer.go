package domain

// StreamerRecord is a tracked streamer.
// Corresponds to streamers table in PostgreSQL.
type StreamerRecord struct {
	ID           string  // PRIMARY KEY, uuid
	Handle       string  // display handle, unique
	TokenAddress *string // token mint address (nullable)
	AvatarURL    *string // avatar image (nullable)
	Approved     bool    // gates visibility and tier evaluation
	CreatedAt    int64   // record creation timestamp (ms)
	UpdatedAt    int64   // last mutation timestamp (ms)
}

// Card is the collectible associated 1:1 with a streamer.
// Corresponds to cards table in PostgreSQL.
type Card struct {
	ID            string // PRIMARY KEY, uuid
	StreamerID    string // UNIQUE FK to streamers
	Tier          Tier   // only ever moves forward through TierOrder
	Supply        int64  // incremented on each successful mint
	MintBasePrice int64  // starting base price in lamports
	CreatedAt     int64  // ms
	UpdatedAt     int64  // bumped on tier upgrade (ms)
}

// DefaultCardBasePriceLamports is the mint base price assigned to new cards.
const DefaultCardBasePriceLamports int64 = 10_000_000
