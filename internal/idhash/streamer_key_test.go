package idhash

import "testing"

func TestStreamerKey(t *testing.T) {
	tests := []struct {
		name   string
		handle string
		token  *string
		want   string
	}{
		{name: "token wins", handle: "PumpKing", token: strPtr("Mint111"), want: "token:Mint111"},
		{name: "handle lower-cased", handle: "PumpKing", token: nil, want: "handle:pumpking"},
		{name: "empty token falls back", handle: "ABC", token: strPtr(""), want: "handle:abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StreamerKey(tt.handle, tt.token); got != tt.want {
				t.Errorf("StreamerKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func strPtr(s string) *string {
	return &s
}
