package provider

import (
	"math"
	"net/url"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"pumpcards/internal/domain"
)

const (
	pubkeyLen      = 32
	maxHandleLen   = 20
	avatarTemplate = "https://api.dicebear.com/7.x/avataaars/svg?seed="
)

// ValidTokenAddress reports whether addr is a base58-encoded 32-byte Solana public key.
func ValidTokenAddress(addr string) bool {
	if addr == "" || len(addr) > 44 {
		return false
	}
	b, err := base58.Decode(addr)
	if err != nil {
		return false
	}
	return len(b) == pubkeyLen
}

// IsWalletAddress reports whether addr is a valid ed25519 public key on the curve.
// Program derived addresses are valid token addresses but never wallet owners.
func IsWalletAddress(addr string) bool {
	if !ValidTokenAddress(addr) {
		return false
	}
	b, _ := base58.Decode(addr)
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// NormalizeHandle strips a leading "@", keeps [A-Za-z0-9_] and truncates to 20 characters.
func NormalizeHandle(handle string) string {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	var b strings.Builder
	for _, r := range handle {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == maxHandleLen {
				break
			}
		}
	}
	return b.String()
}

// AvatarURL returns a deterministic generated avatar for a handle.
func AvatarURL(seed string) string {
	return avatarTemplate + url.QueryEscape(seed)
}

// Sanitize validates an adapter record in place.
// Invalid token addresses and empty avatars are cleared; records with an empty
// handle or a negative or non-finite metric are rejected.
func Sanitize(rec *domain.NormalizedRecord) bool {
	if rec.Handle == "" {
		return false
	}
	if rec.HasNegative() {
		return false
	}
	for _, v := range []float64{rec.Gas, rec.Donations, rec.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if rec.TokenAddress != nil && !ValidTokenAddress(*rec.TokenAddress) {
		rec.TokenAddress = nil
	}
	if rec.AvatarURL != nil && strings.TrimSpace(*rec.AvatarURL) == "" {
		rec.AvatarURL = nil
	}
	return true
}
