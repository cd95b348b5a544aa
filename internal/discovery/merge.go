package discovery

import (
	"strings"

	"pumpcards/internal/domain"
	"pumpcards/internal/idhash"
)

// MinHandleLen is the shortest handle kept by Filter.
const MinHandleLen = 2

// reservedMarkers mark handles used for testing feeds.
var reservedMarkers = []string{"test", "demo"}

// Filter reasons.
const (
	ReasonShortHandle = "short_handle"
	ReasonNegative    = "negative_value"
	ReasonReserved    = "reserved_handle"
)

// Key returns the dedup key of a record.
func Key(rec domain.NormalizedRecord) string {
	return idhash.StreamerKey(rec.Handle, rec.TokenAddress)
}

// Merge folds incoming into existing. The first non-empty handle, token address
// and avatar are kept. Viewers, volume, holders and last seen take
// the maximum; gas and donations are summed as additive activity.
func Merge(existing, incoming domain.NormalizedRecord) domain.NormalizedRecord {
	out := existing
	if out.Handle == "" {
		out.Handle = incoming.Handle
	}
	if isEmpty(out.TokenAddress) && !isEmpty(incoming.TokenAddress) {
		out.TokenAddress = incoming.TokenAddress
	}
	if isEmpty(out.AvatarURL) && !isEmpty(incoming.AvatarURL) {
		out.AvatarURL = incoming.AvatarURL
	}
	out.Viewers = max(existing.Viewers, incoming.Viewers)
	out.Gas = existing.Gas + incoming.Gas
	out.Donations = existing.Donations + incoming.Donations
	out.Volume = max(existing.Volume, incoming.Volume)
	out.Holders = max(existing.Holders, incoming.Holders)
	out.LastSeen = max(existing.LastSeen, incoming.LastSeen)
	return out
}

// Dedup merges records sharing a key, preserving first-seen order.
// It returns the merged records and the number of records folded into an earlier one.
func Dedup(records []domain.NormalizedRecord) ([]domain.NormalizedRecord, int) {
	index := make(map[string]int, len(records))
	out := make([]domain.NormalizedRecord, 0, len(records))
	merged := 0
	for _, rec := range records {
		k := Key(rec)
		if i, ok := index[k]; ok {
			out[i] = Merge(out[i], rec)
			merged++
			continue
		}
		index[k] = len(out)
		out = append(out, rec)
	}
	return out, merged
}

// Filter reports whether a record should be kept, and the reason when it is not.
func Filter(rec domain.NormalizedRecord) (string, bool) {
	if len(rec.Handle) < MinHandleLen {
		return ReasonShortHandle, false
	}
	if rec.HasNegative() {
		return ReasonNegative, false
	}
	lower := strings.ToLower(rec.Handle)
	for _, m := range reservedMarkers {
		if strings.Contains(lower, m) {
			return ReasonReserved, false
		}
	}
	return "", true
}

func isEmpty(s *string) bool {
	return s == nil || *s == ""
}
