// Package main runs one trigger against the configured storage and prints the
// summary as JSON:
//
//	trigger [flags] discover|tiers|refresh|surges|token
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"pumpcards/internal/api"
	"pumpcards/internal/app"
	"pumpcards/internal/config"
	"pumpcards/internal/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("PUMPCARDS_CONFIG"), "Path to YAML config file")
	autoApprove := flag.Bool("auto-approve", false, "Approve newly discovered streamers (discover only)")
	subject := flag.String("subject", "operator", "Token subject (token only)")
	ttl := flag.Duration("ttl", 12*time.Hour, "Token lifetime (token only)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall deadline")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] discover|tiers|refresh|surges|token\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	name := flag.Arg(0)

	// Logs go to stderr so stdout stays valid JSON.
	logger := logrus.New()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Configure(logger, logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stderr",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}

	if name == "token" {
		if err := printToken(cfg, *subject, *ttl); err != nil {
			logger.WithError(err).Fatal("Failed to issue token")
		}
		return
	}

	if _, err := cfg.EnsureDevSecrets(); err != nil {
		logger.WithError(err).Fatal("Failed to generate development secrets")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	stores, cleanup, err := app.OpenStores(ctx, cfg.Storage, logging.Component(logger, "storage"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to create stores")
	}
	defer cleanup()

	orch, err := app.NewOrchestrator(ctx, cfg, stores, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create orchestrator")
	}

	var result any
	switch name {
	case "discover":
		result, err = orch.TriggerDiscovery(ctx, *autoApprove)
	case "tiers":
		result, err = orch.TriggerTierUpgrade(ctx)
	case "refresh":
		result, err = orch.Refresh(ctx)
	case "surges":
		result, err = orch.GetActiveSurges(ctx)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if result != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(result); encErr != nil {
			logger.WithError(encErr).Error("Failed to encode result")
		}
	}
	if err != nil {
		logger.WithError(err).WithField("trigger", name).Error("Trigger failed")
		os.Exit(1)
	}
}

// printToken prints a signed admin JWT for the configured secret.
func printToken(cfg *config.Config, subject string, ttl time.Duration) error {
	auth, err := api.NewAuthenticator(cfg.Admin.JWTSecret)
	if err != nil {
		return err
	}
	token, err := auth.IssueToken(subject, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
