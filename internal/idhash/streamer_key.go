package idhash

import "strings"

// StreamerKey returns the dedup key for a discovered streamer.
// Token address wins when present: "token:<address>", otherwise "handle:<lower(handle)>".
func StreamerKey(handle string, tokenAddress *string) string {
	if tokenAddress != nil && *tokenAddress != "" {
		return "token:" + *tokenAddress
	}
	return "handle:" + strings.ToLower(handle)
}
