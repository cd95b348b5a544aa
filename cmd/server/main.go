// Package main runs the pumpcards service:
// - HTTP API (pricing, quotes, minting, admin)
// - Scheduled triggers: discovery, tier evaluation, refresh
// - Prometheus metrics and status on a separate listener
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pumpcards/internal/api"
	"pumpcards/internal/app"
	"pumpcards/internal/config"
	"pumpcards/internal/logging"
	"pumpcards/internal/orchestrator"
	"pumpcards/internal/scheduler"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 30 * time.Second

// Server holds all components of the service.
type Server struct {
	cfg       *config.Config
	stores    *app.Stores
	orch      *orchestrator.Orchestrator
	scheduler *scheduler.Scheduler
	logger    *logrus.Logger
	started   time.Time
}

func main() {
	configPath := flag.String("config", os.Getenv("PUMPCARDS_CONFIG"), "Path to YAML config file")
	httpAddr := flag.String("http-addr", "", "API listen address (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "Metrics/status listen address (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	flag.Parse()

	logger := logrus.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *useMemory {
		cfg.Storage.Backend = config.BackendMemory
	}

	if err := logging.Configure(logger, logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		logger.WithError(err).Fatal("Failed to configure logging")
	}

	generated, err := cfg.EnsureDevSecrets()
	if err != nil {
		logger.WithError(err).Fatal("Failed to generate development secrets")
	}
	if generated {
		logger.Warn("Generated random quote/admin secrets for in-memory mode; they do not survive restarts")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, cleanup, err := app.OpenStores(ctx, cfg.Storage, logging.Component(logger, "storage"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to create stores")
	}
	defer cleanup()

	orch, err := app.NewOrchestrator(ctx, cfg, stores, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create orchestrator")
	}

	s := &Server{
		cfg:     cfg,
		stores:  stores,
		orch:    orch,
		logger:  logger,
		started: time.Now(),
	}
	s.scheduler = s.newScheduler()

	logger.WithFields(logrus.Fields{
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"backend":        stores.Backend,
		"sample_backend": stores.SampleBackend,
		"schedule":       cfg.Schedule.Enabled,
	}).Info("Starting pumpcards server")

	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("Server error")
	}
	logger.Info("Shutdown complete")
}

// newScheduler wires the three periodic triggers. Scheduled discovery
// auto-approves new streamers; the admin trigger does not.
func (s *Server) newScheduler() *scheduler.Scheduler {
	log := logging.Component(s.logger, "scheduler")
	sc := s.cfg.Schedule

	return scheduler.New(
		scheduler.NewTrigger(scheduler.TriggerDiscovery, sc.Discovery, func(ctx context.Context) error {
			_, err := s.orch.TriggerDiscovery(ctx, true)
			return err
		}, s.stores.Leases, log),
		scheduler.NewTrigger(scheduler.TriggerTiers, sc.Tiers, func(ctx context.Context) error {
			_, err := s.orch.TriggerTierUpgrade(ctx)
			return err
		}, s.stores.Leases, log),
		scheduler.NewTrigger(scheduler.TriggerRefresh, sc.Refresh, func(ctx context.Context) error {
			_, err := s.orch.Refresh(ctx)
			return err
		}, s.stores.Leases, log),
	)
}

// Run serves the API and metrics listeners and runs the scheduler until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	auth, err := api.NewAuthenticator(s.cfg.Admin.JWTSecret)
	if err != nil {
		return err
	}
	handler := api.NewHandler(s.orch, auth, logging.Component(s.logger, "api"))

	apiSrv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           handler.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsSrv := &http.Server{
		Addr:              s.cfg.MetricsAddr,
		Handler:           s.metricsMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range []*http.Server{apiSrv, metricsSrv} {
		g.Go(func() error {
			s.logger.WithField("addr", srv.Addr).Info("Starting HTTP server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	if s.cfg.Schedule.Enabled {
		g.Go(func() error {
			return s.scheduler.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(apiSrv.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	return g.Wait()
}
