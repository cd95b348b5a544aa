// Package app assembles stores, providers and the orchestrator from config.
// It is shared by the server and the one-shot trigger command.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"pumpcards/internal/config"
	"pumpcards/internal/domain"
	"pumpcards/internal/logging"
	"pumpcards/internal/orchestrator"
	"pumpcards/internal/pricing"
	"pumpcards/internal/provider"
	"pumpcards/internal/storage"
	chstore "pumpcards/internal/storage/clickhouse"
	"pumpcards/internal/storage/memory"
	"pumpcards/internal/storage/migrations"
	pgstore "pumpcards/internal/storage/postgres"
)

// Stores holds all storage implementations.
type Stores struct {
	Streamers  storage.StreamerStore
	Cards      storage.CardStore
	Samples    storage.MetricSampleStore
	Thresholds storage.ThresholdStore
	Settings   storage.SettingsStore
	Quotes     storage.QuoteStore
	Mints      storage.MintStore
	Cache      storage.Cache
	Leases     storage.LeaseStore

	// Backend names the relational backend; SampleBackend names where samples live.
	Backend       string
	SampleBackend string
}

// OpenStores creates the configured stores. The returned cleanup closes connections.
func OpenStores(ctx context.Context, cfg config.StorageConfig, logger logrus.FieldLogger) (*Stores, func(), error) {
	if cfg.Backend == config.BackendMemory {
		return &Stores{
			Streamers:     memory.NewStreamerStore(),
			Cards:         memory.NewCardStore(),
			Samples:       memory.NewMetricSampleStore(),
			Thresholds:    memory.NewThresholdStore(domain.DefaultThresholds()...),
			Settings:      memory.NewSettingsStore(),
			Quotes:        memory.NewQuoteStore(),
			Mints:         memory.NewMintStore(),
			Cache:         memory.NewCache(),
			Leases:        memory.NewLeaseStore(),
			Backend:       config.BackendMemory,
			SampleBackend: config.BackendMemory,
		}, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Info("Postgres migrations applied")
	}

	stores := &Stores{
		Streamers:     pgstore.NewStreamerStore(pool),
		Cards:         pgstore.NewCardStore(pool),
		Samples:       pgstore.NewMetricSampleStore(pool),
		Thresholds:    pgstore.NewThresholdStore(pool),
		Settings:      pgstore.NewSettingsStore(pool),
		Quotes:        pgstore.NewQuoteStore(pool),
		Mints:         pgstore.NewMintStore(pool),
		Cache:         pgstore.NewCache(pool),
		Leases:        pgstore.NewLeaseStore(pool),
		Backend:       config.BackendPostgres,
		SampleBackend: config.BackendPostgres,
	}
	cleanup := pool.Close

	// ClickHouse (optional, metric samples only)
	if cfg.ClickhouseDSN != "" {
		var chConn *chstore.Conn
		if cfg.Migrate {
			chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		} else {
			chConn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
		}
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		stores.Samples = chstore.NewMetricSampleStore(chConn)
		stores.SampleBackend = "clickhouse"
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// BuildProviders creates every discovery adapter from config. Disabled adapters
// are included so their status is reported.
func BuildProviders(cfg config.ProvidersConfig, logger logrus.FieldLogger) []provider.Provider {
	fetcher := func(name string) *provider.Fetcher {
		return provider.NewFetcher(name,
			provider.WithTimeout(cfg.Timeout),
			provider.WithMaxRetries(cfg.MaxRetries),
			provider.WithRetryDelay(cfg.RetryDelay),
			provider.WithRateLimit(cfg.RequestsPerSecond),
		)
	}
	log := logging.Component(logger, "provider")

	return []provider.Provider{
		provider.NewPumpFunProvider(cfg.PumpFun.Enabled, cfg.PumpFun.Endpoints, cfg.PumpFun.LivePageURL, fetcher("pump.fun"), log),
		provider.NewHeliusProvider(cfg.Helius.APIKey, cfg.Helius.BaseURL, cfg.Helius.Mints, fetcher("helius"), log),
		provider.NewCommunityProvider(cfg.Community.URLs, cfg.Community.S3Region, fetcher("community"), log),
		provider.NewLiveFeedProvider(cfg.LiveFeed.URL, cfg.LiveFeed.CollectFor, cfg.LiveFeed.MaxMessages, log),
		provider.NewDemoProvider(cfg.Demo.Enabled),
	}
}

// NewOrchestrator seeds the pricing config if none is stored and builds the orchestrator.
func NewOrchestrator(ctx context.Context, cfg *config.Config, stores *Stores, logger logrus.FieldLogger) (*orchestrator.Orchestrator, error) {
	seed := domain.DefaultPricingConfig()
	if cfg.Pricing != nil {
		seed = *cfg.Pricing
	}
	seeded, err := pricing.SeedConfig(ctx, stores.Settings, seed)
	if err != nil {
		return nil, fmt.Errorf("seed pricing config: %w", err)
	}
	if seeded {
		logger.Info("Seeded pricing config")
	}

	return orchestrator.New(orchestrator.Options{
		Streamers:       stores.Streamers,
		Cards:           stores.Cards,
		Samples:         stores.Samples,
		Thresholds:      stores.Thresholds,
		Settings:        stores.Settings,
		Quotes:          stores.Quotes,
		Mints:           stores.Mints,
		Cache:           stores.Cache,
		Providers:       BuildProviders(cfg.Providers, logger),
		ProviderTimeout: cfg.Providers.Timeout,
		QuoteSecret:     cfg.Quote.Secret,
		QuoteTTL:        cfg.Quote.TTL,
		SingleUseQuotes: cfg.Quote.SingleUse,
		Logger:          logger,
	})
}
