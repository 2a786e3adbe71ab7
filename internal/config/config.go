// Package config provides configuration loading and management for the bot.
// It handles environment variable parsing and provides default values for all settings.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/red-avtovo/r-trans-bot/internal/vault"
)

// init loads environment variables from .env files during package initialization.
// In development, it loads .env and .env.local files if they exist.
// In production, it relies solely on system environment variables.
// The loading order ensures that system environment variables take precedence over .env files.
func init() {
	// godotenv.Load() does not override already-set environment variables,
	// preserving OS env > .env precedence

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}

	// .env.local holds local overrides and is gitignored
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}
}

// Config captures environment-driven settings for the bot.
type Config struct {
	Env         string // Deployment environment (dev, prod)
	Token       string // Chat platform bot token
	Secret      string // Credential vault key, exactly 32 bytes
	DatabaseDSN string // PostgreSQL connection string; empty selects the in-memory store
	NATSURL     string // NATS server URL for task events, optional
	MetricsAddr string // Listen address of the metrics endpoint
}

// Default configuration values used when environment variables are not set
const (
	defaultEnv         = "dev"
	defaultMetricsAddr = ":9090"
)

// Load reads environment variables and produces a Config suitable for wiring
// the bot. Returns an error if required parameters are missing or invalid.
func Load() (Config, error) {
	cfg := Config{}

	if env, exists := os.LookupEnv("BOT_ENV"); exists {
		cfg.Env = env
	} else {
		cfg.Env = defaultEnv
	}

	if token, exists := os.LookupEnv("BOT_TOKEN"); exists {
		cfg.Token = token
	}

	if secret, exists := os.LookupEnv("BOT_SECRET"); exists {
		cfg.Secret = secret
	}

	if dsn, exists := os.LookupEnv("DATABASE_URL"); exists {
		cfg.DatabaseDSN = dsn
	}

	if natsURL, exists := os.LookupEnv("BOT_NATS_URL"); exists {
		cfg.NATSURL = natsURL
	}

	if addr, exists := os.LookupEnv("BOT_METRICS_ADDR"); exists {
		cfg.MetricsAddr = addr
	} else {
		cfg.MetricsAddr = defaultMetricsAddr
	}

	// Validate required parameters
	if cfg.Token == "" {
		return cfg, fmt.Errorf("BOT_TOKEN is required")
	}

	if cfg.Secret == "" {
		return cfg, fmt.Errorf("BOT_SECRET is required")
	}
	if len(cfg.Secret) != vault.KeySize {
		return cfg, fmt.Errorf("BOT_SECRET must be exactly %d bytes, got %d", vault.KeySize, len(cfg.Secret))
	}

	return cfg, nil
}
