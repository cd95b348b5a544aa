package provider

import (
	"strconv"
	"strings"
	"time"

	"pumpcards/internal/domain"
)

const lamportsPerSOL = 1e9

// fieldSet names the alternative keys a loosely-typed feed may use for each field.
type fieldSet struct {
	handle    []string
	token     []string
	avatar    []string
	viewers   []string
	gas       []string
	donations []string
	volume    []string
	holders   []string
	lastSeen  []string
	// lamports marks gas and donations as reported in lamports rather than SOL.
	lamports bool
}

var communityFields = fieldSet{
	handle:    []string{"handle", "name", "username"},
	token:     []string{"token_ca", "tokenAddress", "contract"},
	avatar:    []string{"avatar_url", "avatar", "image"},
	viewers:   []string{"viewers", "viewerCount", "live_viewers"},
	gas:       []string{"gas_sol", "gas", "fees", "gasUsed"},
	donations: []string{"donations_sol", "donations", "tips"},
	volume:    []string{"volume_sol", "volume", "tradingVolume"},
	holders:   []string{"holders", "holderCount", "unique_holders"},
	lastSeen:  []string{"last_seen", "lastSeen", "timestamp"},
}

var pumpFunFields = fieldSet{
	handle:    []string{"handle", "username", "name", "symbol"},
	token:     []string{"token_ca", "mint", "contract_address"},
	avatar:    []string{"avatar_url", "profile_image", "image_uri"},
	viewers:   []string{"viewer_count", "viewers", "num_participants"},
	gas:       []string{"gas_spent_24h"},
	donations: []string{"donations_24h"},
	volume:    []string{"volume_sol", "volume"},
	holders:   []string{"holders", "follower_count"},
	lastSeen:  []string{"last_seen", "last_trade_timestamp", "created_timestamp"},
	lamports:  true,
}

// parseRaw maps one loosely-typed JSON object to a record. Missing metrics are zero.
func parseRaw(m map[string]any, fs fieldSet, source string, now time.Time) domain.NormalizedRecord {
	rec := domain.NormalizedRecord{
		Handle:    NormalizeHandle(firstString(m, fs.handle)),
		Viewers:   int64(firstNumber(m, fs.viewers)),
		Gas:       firstNumber(m, fs.gas),
		Donations: firstNumber(m, fs.donations),
		Volume:    firstNumber(m, fs.volume),
		Holders:   int64(firstNumber(m, fs.holders)),
		LastSeen:  toMillis(firstNumber(m, fs.lastSeen)),
		Source:    source,
	}
	if fs.lamports {
		rec.Gas /= lamportsPerSOL
		rec.Donations /= lamportsPerSOL
	}
	if rec.LastSeen == 0 {
		rec.LastSeen = now.UnixMilli()
	}
	if tok := firstString(m, fs.token); tok != "" {
		rec.TokenAddress = &tok
	}
	avatar := firstString(m, fs.avatar)
	if avatar == "" && rec.Handle != "" {
		avatar = AvatarURL(rec.Handle)
	}
	if avatar != "" {
		rec.AvatarURL = &avatar
	}
	return rec
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstNumber(m map[string]any, keys []string) float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			if v != 0 {
				return v
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f != 0 {
				return f
			}
		}
	}
	return 0
}

// toMillis accepts unix seconds or milliseconds.
func toMillis(v float64) int64 {
	if v <= 0 {
		return 0
	}
	if v < 1e12 {
		return int64(v * 1000)
	}
	return int64(v)
}
