package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LINEN_"

// envOverrides lists the runtime settings the environment may override.
type envOverrides struct {
	LogLevel     string        `env:"LOG_LEVEL"`
	LogFormat    string        `env:"LOG_FORMAT"`
	TickRate     time.Duration `env:"TICK_RATE"`
	SnapshotPath string        `env:"SNAPSHOT_PATH"`
}

// ApplyEnv overwrites runtime settings with LINEN_* variables found in
// environ. Unset or empty variables leave the setting alone.
func ApplyEnv(rc *RuntimeConfig, environ []string) error {
	var o envOverrides
	if err := ParseEnv(&o, environ); err != nil {
		return err
	}
	if o.LogLevel != "" {
		rc.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		rc.LogFormat = o.LogFormat
	}
	if o.TickRate != 0 {
		rc.TickRate = o.TickRate
	}
	if o.SnapshotPath != "" {
		rc.SnapshotPath = o.SnapshotPath
	}
	return nil
}

// ParseEnv loads LINEN_-prefixed variables from environ into target.
func ParseEnv(target any, environ []string) error {
	opts := env.Options{
		Prefix:      EnvPrefix,
		Environment: toMap(environ),
	}
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func toMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}
