package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pumpcards/internal/discovery"
	"pumpcards/internal/domain"
	"pumpcards/internal/orchestrator"
	"pumpcards/internal/tier"
)

// GetPrice handles GET /api/cards/{id}/price.
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetPrice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// IssueQuote handles POST /api/cards/{id}/quote.
func (h *Handler) IssueQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.IssueQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, QuoteResponse{
		QuoteID:       q.ID,
		CardID:        q.CardID,
		PriceLamports: q.PriceLamports,
		Signature:     q.Signature,
		ExpiresAt:     q.ExpiresAt,
	})
}

// Mint handles POST /api/cards/{id}/mint by redeeming a signed quote.
func (h *Handler) Mint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.svc.RedeemQuote(r.Context(), orchestrator.RedeemRequest{
		QuoteID:       req.QuoteID,
		CardID:        chi.URLParam(r, "id"),
		PriceLamports: req.PriceLamports,
		Signature:     req.Signature,
		PaymentProof:  req.PaymentProof,
		OwnerPubkey:   req.OwnerPubkey,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MintResponse{
		MintID:        m.ID,
		CardID:        m.CardID,
		QuoteID:       m.QuoteID,
		OwnerPubkey:   m.OwnerPubkey,
		PriceLamports: m.PriceLamports,
		Edition:       m.Edition,
		CreatedAt:     m.CreatedAt,
	})
}

// TierBenefits handles GET /api/tiers/{tier}/benefits.
func (h *Handler) TierBenefits(w http.ResponseWriter, r *http.Request) {
	t, ok := domain.ParseTier(chi.URLParam(r, "tier"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown tier")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tier":     t,
		"benefits": tier.Benefits(t),
	})
}

// TriggerDiscovery handles POST /api/admin/discovery/trigger.
// New streamers stay pending until approved.
func (h *Handler) TriggerDiscovery(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.TriggerDiscovery(r.Context(), false)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// TriggerUpgrades handles POST /api/admin/upgrades/trigger.
func (h *Handler) TriggerUpgrades(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.TriggerTierUpgrade(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RecentUpgrades handles GET /api/admin/upgrades?limit=N.
func (h *Handler) RecentUpgrades(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.RecentUpgrades(r.Context(), queryInt(r, "limit", defaultUpgradeLimit))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []domain.UpgradeEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"upgrades": events})
}

// ActiveSurges handles GET /api/admin/surge.
func (h *Handler) ActiveSurges(w http.ResponseWriter, r *http.Request) {
	surges, err := h.svc.GetActiveSurges(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if surges == nil {
		surges = []domain.SurgeData{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"surges": surges})
}

// Providers handles GET /api/admin/providers.
func (h *Handler) Providers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": h.svc.ProviderStatus()})
}

// ApproveStreamer handles PUT /api/admin/streamers/{id}/approve.
func (h *Handler) ApproveStreamer(w http.ResponseWriter, r *http.Request) {
	card, err := h.svc.ApproveStreamer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "card": toCardResponse(card)})
}

// ListThresholds handles GET /api/admin/thresholds.
func (h *Handler) ListThresholds(w http.ResponseWriter, r *http.Request) {
	ts, err := h.svc.Thresholds(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]ThresholdBody, 0, len(ts))
	for _, t := range ts {
		out = append(out, toThresholdBody(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"thresholds": out})
}

// UpdateThreshold handles PUT /api/admin/thresholds/{tier}.
func (h *Handler) UpdateThreshold(w http.ResponseWriter, r *http.Request) {
	t, ok := domain.ParseTier(chi.URLParam(r, "tier"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown tier")
		return
	}
	var body ThresholdBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.svc.UpdateThreshold(r.Context(), domain.TierThreshold{
		Tier:            t,
		MinViewers:      body.MinViewers,
		MinGas24h:       body.MinGas24h,
		MinDonations24h: body.MinDonations24h,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toThresholdBody(saved))
}

// GetPricingConfig handles GET /api/admin/pricing.
func (h *Handler) GetPricingConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.PricingConfig(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdatePricingConfig handles PUT /api/admin/pricing.
func (h *Handler) UpdatePricingConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.PricingConfig
	if err := decodeJSON(w, r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := h.svc.UpdatePricingConfig(r.Context(), cfg)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// IngestRequest is the body of POST /api/admin/ingest.
type IngestRequest struct {
	Streamers []discovery.ManualRecord `json:"streamers"`
}

// Ingest handles POST /api/admin/ingest.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Streamers) == 0 {
		writeError(w, http.StatusBadRequest, "streamers must not be empty")
		return
	}
	sum, err := h.svc.IngestManual(r.Context(), req.Streamers)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
