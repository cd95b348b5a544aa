package main

import (
	"encoding/json"
	"net/http"
	"time"

	"pumpcards/internal/observability"
	"pumpcards/internal/provider"
	"pumpcards/internal/scheduler"
)

// metricsMux serves health, Prometheus metrics and status.
func (s *Server) metricsMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string             `json:"status"`
	Uptime        string             `json:"uptime"`
	Started       time.Time          `json:"started"`
	Backend       string             `json:"backend"`
	SampleBackend string             `json:"sample_backend"`
	Schedule      bool               `json:"schedule_enabled"`
	Triggers      []scheduler.Status `json:"triggers"`
	Providers     []provider.Status  `json:"providers"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Started:       s.started,
		Backend:       s.stores.Backend,
		SampleBackend: s.stores.SampleBackend,
		Schedule:      s.cfg.Schedule.Enabled,
		Triggers:      s.scheduler.Statuses(),
		Providers:     s.orch.ProviderStatus(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
