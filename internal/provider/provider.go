// Package provider defines the streamer metrics source contract and its adapters.
package provider

import (
	"context"
	"errors"

	"pumpcards/internal/domain"
)

// ErrDisabled is returned by FetchStreamers when the adapter lacks configuration.
var ErrDisabled = errors.New("provider disabled")

// Provider is one external source of streamer metrics.
// FetchStreamers returns only records that passed Sanitize.
type Provider interface {
	Name() string
	Enabled() bool
	// Synthetic reports whether records are generated rather than observed.
	Synthetic() bool
	FetchStreamers(ctx context.Context) ([]domain.NormalizedRecord, error)
}

// Status describes one configured provider.
type Status struct {
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	Synthetic bool   `json:"synthetic"`
}

// Statuses lists the status of every provider in order.
func Statuses(providers []Provider) []Status {
	out := make([]Status, 0, len(providers))
	for _, p := range providers {
		out = append(out, Status{Name: p.Name(), Enabled: p.Enabled(), Synthetic: p.Synthetic()})
	}
	return out
}
