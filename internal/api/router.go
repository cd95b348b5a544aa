// Package api implements the HTTP surface for card pricing, quotes, minting and
// the admin operations.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"pumpcards/internal/discovery"
	"pumpcards/internal/domain"
	"pumpcards/internal/observability"
	"pumpcards/internal/orchestrator"
	"pumpcards/internal/pricing"
	"pumpcards/internal/provider"
	"pumpcards/internal/tier"
)

// Service is the set of operations served over HTTP.
type Service interface {
	GetPrice(ctx context.Context, cardID string) (pricing.Breakdown, error)
	IssueQuote(ctx context.Context, cardID string) (*domain.PriceQuote, error)
	RedeemQuote(ctx context.Context, req orchestrator.RedeemRequest) (*domain.MintRecord, error)
	TriggerDiscovery(ctx context.Context, autoApprove bool) (orchestrator.DiscoveryResult, error)
	TriggerTierUpgrade(ctx context.Context) (tier.Result, error)
	GetActiveSurges(ctx context.Context) ([]domain.SurgeData, error)
	ProviderStatus() []provider.Status
	ApproveStreamer(ctx context.Context, streamerID string) (*domain.Card, error)
	IngestManual(ctx context.Context, records []discovery.ManualRecord) (discovery.Summary, error)
	RecentUpgrades(ctx context.Context, limit int) ([]domain.UpgradeEvent, error)
	Thresholds(ctx context.Context) ([]domain.TierThreshold, error)
	UpdateThreshold(ctx context.Context, t domain.TierThreshold) (domain.TierThreshold, error)
	PricingConfig(ctx context.Context) (domain.PricingConfig, error)
	UpdatePricingConfig(ctx context.Context, cfg domain.PricingConfig) (domain.PricingConfig, error)
}

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// defaultUpgradeLimit is the page size of GET /api/admin/upgrades.
const defaultUpgradeLimit = 10

// Handler holds all API handler state.
type Handler struct {
	svc    Service
	auth   *Authenticator
	logger logrus.FieldLogger
}

// NewHandler creates a new API handler.
func NewHandler(svc Service, auth *Authenticator, logger logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, auth: auth, logger: logger}
}

// NewRouter returns a chi router with the middleware stack and all routes.
func (h *Handler) NewRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.metricsMiddleware)
	h.Routes(r)
	return r
}

// Routes mounts the API routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/cards/{id}/price", h.GetPrice)
		r.Post("/cards/{id}/quote", h.IssueQuote)
		r.Post("/cards/{id}/mint", h.Mint)
		r.Get("/tiers/{tier}/benefits", h.TierBenefits)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.auth.Middleware)

			r.Post("/discovery/trigger", h.TriggerDiscovery)
			r.Post("/upgrades/trigger", h.TriggerUpgrades)
			r.Get("/upgrades", h.RecentUpgrades)
			r.Get("/surge", h.ActiveSurges)
			r.Get("/providers", h.Providers)
			r.Put("/streamers/{id}/approve", h.ApproveStreamer)
			r.Get("/thresholds", h.ListThresholds)
			r.Put("/thresholds/{tier}", h.UpdateThreshold)
			r.Get("/pricing", h.GetPricingConfig)
			r.Put("/pricing", h.UpdatePricingConfig)
			r.Post("/ingest", h.Ingest)
		})
	})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// metricsMiddleware records request counts and latencies by route pattern.
func (h *Handler) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RecordHTTPRequest(r.Method, route, status, time.Since(start).Seconds())
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
