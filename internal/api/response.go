package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"pumpcards/internal/domain"
	"pumpcards/internal/orchestrator"
	"pumpcards/internal/pricing"
	"pumpcards/internal/quote"
	"pumpcards/internal/storage"
	"pumpcards/internal/tier"
)

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError writes {"error": message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors onto status codes. Unexpected errors
// are logged and reported as 500 without detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, quote.ErrInvalidQuote):
		writeError(w, http.StatusBadRequest, quote.ErrInvalidQuote.Error())
	case errors.Is(err, orchestrator.ErrMissingProof), errors.Is(err, orchestrator.ErrInvalidWallet):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tier.ErrMalformedThreshold), errors.Is(err, domain.ErrInvalidPricingConfig),
		errors.Is(err, storage.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pricing.ErrNoConfig):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// QuoteResponse is returned by POST /api/cards/{id}/quote.
type QuoteResponse struct {
	QuoteID       string `json:"quote_id"`
	CardID        string `json:"card_id"`
	PriceLamports int64  `json:"price_lamports"`
	Signature     string `json:"signature"`
	ExpiresAt     int64  `json:"expires_at"`
}

// MintRequest is the body of POST /api/cards/{id}/mint.
type MintRequest struct {
	QuoteID       string `json:"quote_id"`
	PriceLamports int64  `json:"price_lamports"`
	Signature     string `json:"signature"`
	PaymentProof  string `json:"payment_proof"`
	OwnerPubkey   string `json:"owner_pubkey"`
}

// MintResponse describes a minted card edition.
type MintResponse struct {
	MintID        string `json:"mint_id"`
	CardID        string `json:"card_id"`
	QuoteID       string `json:"quote_id"`
	OwnerPubkey   string `json:"owner_pubkey"`
	PriceLamports int64  `json:"price_lamports"`
	Edition       int64  `json:"edition"`
	CreatedAt     int64  `json:"created_at"`
}

// CardResponse describes a card.
type CardResponse struct {
	ID            string `json:"id"`
	StreamerID    string `json:"streamer_id"`
	Tier          string `json:"tier"`
	Supply        int64  `json:"supply"`
	MintBasePrice int64  `json:"mint_base_price_lamports"`
}

// ThresholdBody is a tier threshold on the wire.
type ThresholdBody struct {
	Tier            string  `json:"tier"`
	MinViewers      float64 `json:"min_viewers"`
	MinGas24h       float64 `json:"min_gas_24h"`
	MinDonations24h float64 `json:"min_donations_24h"`
	UpdatedAt       int64   `json:"updated_at,omitempty"`
}

func toThresholdBody(t domain.TierThreshold) ThresholdBody {
	return ThresholdBody{
		Tier:            t.Tier.String(),
		MinViewers:      t.MinViewers,
		MinGas24h:       t.MinGas24h,
		MinDonations24h: t.MinDonations24h,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toCardResponse(c *domain.Card) CardResponse {
	return CardResponse{
		ID:            c.ID,
		StreamerID:    c.StreamerID,
		Tier:          c.Tier.String(),
		Supply:        c.Supply,
		MintBasePrice: c.MintBasePrice,
	}
}
