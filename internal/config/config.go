// Package config loads ghostwire's process configuration: environment
// variables (optionally sourced from a .env file), validated and
// defaulted via struct tags, plus the path to an optional YAML tuning
// file handed off to internal/tuning.Store.
//
// Grounded on raiden-staging-kernel-images's server/cmd/config/config.go
// for the envconfig/validate shape and NeboLoop-nebo's nebo.go for the
// godotenv.Load() call at process start.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every environment-sourced setting the broker and
// bridge binaries need. Both processes load the same struct; each
// only reads the fields relevant to its own role.
type Config struct {
	// BrokerPort is the loopback port the broker listens on (spec §4.1).
	BrokerPort int `envconfig:"PORT" default:"7331"`

	// TuningFile is an optional path to a YAML tuning file watched by
	// internal/tuning.Store. Empty means defaults only, no file.
	TuningFile string `envconfig:"TUNING_FILE" default:""`

	// BrokerURL is the page-bridge's outbound WebSocket target.
	BrokerURL string `envconfig:"BROKER_URL" default:"ws://127.0.0.1:7331/ws"`

	// ExtensionID and ExtensionVersion identify the bridge in its
	// handshake (spec §4.1's classify-on-first-message design).
	ExtensionID      string `envconfig:"EXTENSION_ID" default:"ghostwire-bridge-sim"`
	ExtensionVersion string `envconfig:"EXTENSION_VERSION" default:"dev"`

	// RelayToken is presented by non-loopback clients and bridges; see
	// internal/broker/auth.go. Empty is valid for an all-loopback setup.
	RelayToken string `envconfig:"RELAY_TOKEN" default:""`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads a .env file if present (ignoring its absence, matching
// nebo.go's `_ = godotenv.Load()`), then processes the environment
// into a Config and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.BrokerPort <= 0 || cfg.BrokerPort > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.BrokerPort)
	}
	if cfg.BrokerURL == "" {
		return fmt.Errorf("BROKER_URL is required")
	}
	if cfg.ExtensionID == "" {
		return fmt.Errorf("EXTENSION_ID is required")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}
	return nil
}
