package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pumpcards/internal/domain"
	"pumpcards/internal/storage"
)

// ErrNoConfig is returned when no pricing config has been stored.
var ErrNoConfig = errors.New("pricing config not found")

// LoadConfig reads and validates the stored pricing config.
func LoadConfig(ctx context.Context, settings storage.SettingsStore) (domain.PricingConfig, error) {
	raw, err := settings.Get(ctx, domain.PricingConfigKey)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.PricingConfig{}, ErrNoConfig
	}
	if err != nil {
		return domain.PricingConfig{}, fmt.Errorf("get pricing config: %w", err)
	}

	var cfg domain.PricingConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return domain.PricingConfig{}, fmt.Errorf("%w: %v", domain.ErrInvalidPricingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return domain.PricingConfig{}, err
	}
	return cfg, nil
}

// SaveConfig validates cfg, bumps its version past the stored one and stores it.
func SaveConfig(ctx context.Context, settings storage.SettingsStore, cfg domain.PricingConfig) (domain.PricingConfig, error) {
	if err := cfg.Validate(); err != nil {
		return domain.PricingConfig{}, err
	}

	var version int64
	if current, err := LoadConfig(ctx, settings); err == nil {
		version = current.Version
	} else if !errors.Is(err, ErrNoConfig) && !errors.Is(err, domain.ErrInvalidPricingConfig) {
		return domain.PricingConfig{}, err
	}
	cfg.Version = version + 1

	b, err := json.Marshal(cfg)
	if err != nil {
		return domain.PricingConfig{}, fmt.Errorf("marshal pricing config: %w", err)
	}
	if err := settings.Put(ctx, domain.PricingConfigKey, string(b)); err != nil {
		return domain.PricingConfig{}, fmt.Errorf("put pricing config: %w", err)
	}
	return cfg, nil
}

// SeedConfig stores cfg when no valid config exists yet. It reports whether it wrote.
func SeedConfig(ctx context.Context, settings storage.SettingsStore, cfg domain.PricingConfig) (bool, error) {
	_, err := LoadConfig(ctx, settings)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNoConfig) {
		return false, err
	}
	if _, err := SaveConfig(ctx, settings, cfg); err != nil {
		return false, err
	}
	return true, nil
}
