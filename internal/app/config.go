package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the entrypoint's settings. Zero values mean "not set here":
// the configuration files, LINEN_* variables and defaults fill them in.
type Config struct {
	ConfigPath string // .hcl/.yaml file or directory, optional

	LogFormat       string
	LogLevel        string
	TickRate        time.Duration
	Ticks           int
	SnapshotPath    string
	HealthcheckPort int

	// PrintOrder makes Run print the initialization order and return.
	PrintOrder bool
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.TickRate < 0 {
		return nil, errors.New("tick rate must not be negative")
	}
	if cfg.Ticks < 0 {
		return nil, errors.New("ticks must not be negative")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck port out of range: %d", cfg.HealthcheckPort)
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	return &cfg, nil
}
