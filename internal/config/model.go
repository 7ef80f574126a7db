package config

import (
	"fmt"
	"slices"
	"time"
)

// Defaults applied before any file is read.
const (
	DefaultTickRate  = 50 * time.Millisecond
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Model is the unified, format-agnostic representation of the driver
// configuration.
type Model struct {
	Runtime RuntimeConfig
	Modules []ModuleDecl
}

// RuntimeConfig holds settings of the tick driver itself.
type RuntimeConfig struct {
	TickRate time.Duration
	// Ticks bounds the run; zero means run until cancelled.
	Ticks           int
	LogLevel        string
	LogFormat       string
	SnapshotPath    string
	HealthcheckPort int
}

// ModuleDecl declares one catalog module for the driver to register.
type ModuleDecl struct {
	Name     string
	Enabled  bool
	Autoload bool
	// DependsOn repeats dependencies for documentation and parity checking.
	// It never adds edges the module itself does not declare.
	DependsOn []string
	Settings  map[string]string
	// Source is the file the declaration came from.
	Source string
}

// NewModel returns a model holding the defaults.
func NewModel() *Model {
	return &Model{
		Runtime: RuntimeConfig{
			TickRate:  DefaultTickRate,
			LogLevel:  DefaultLogLevel,
			LogFormat: DefaultLogFormat,
		},
	}
}

// Module returns the declaration for name.
func (m *Model) Module(name string) (ModuleDecl, bool) {
	idx := slices.IndexFunc(m.Modules, func(d ModuleDecl) bool { return d.Name == name })
	if idx < 0 {
		return ModuleDecl{}, false
	}
	return m.Modules[idx], true
}

// Validate checks values that no decoder can rule out on its own.
func (m *Model) Validate() error {
	if m.Runtime.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %s", m.Runtime.TickRate)
	}
	if m.Runtime.Ticks < 0 {
		return fmt.Errorf("ticks must not be negative, got %d", m.Runtime.Ticks)
	}
	if m.Runtime.HealthcheckPort < 0 || m.Runtime.HealthcheckPort > 65535 {
		return fmt.Errorf("healthcheck_port out of range: %d", m.Runtime.HealthcheckPort)
	}
	for _, d := range m.Modules {
		if d.Name == "" {
			return fmt.Errorf("%s: module declaration without a name", d.Source)
		}
		if slices.Contains(d.DependsOn, d.Name) {
			return fmt.Errorf("%s: module '%s' depends on itself", d.Source, d.Name)
		}
	}
	return nil
}

// runtimePatch carries the runtime settings one file sets. Nil fields are
// left untouched when the patch is applied.
type runtimePatch struct {
	TickRate        *string
	Ticks           *int
	LogLevel        *string
	LogFormat       *string
	SnapshotPath    *string
	HealthcheckPort *int
}

func (p runtimePatch) apply(rc *RuntimeConfig) error {
	if p.TickRate != nil {
		d, err := time.ParseDuration(*p.TickRate)
		if err != nil {
			return fmt.Errorf("invalid tick_rate: %w", err)
		}
		rc.TickRate = d
	}
	if p.Ticks != nil {
		rc.Ticks = *p.Ticks
	}
	if p.LogLevel != nil {
		rc.LogLevel = *p.LogLevel
	}
	if p.LogFormat != nil {
		rc.LogFormat = *p.LogFormat
	}
	if p.SnapshotPath != nil {
		rc.SnapshotPath = *p.SnapshotPath
	}
	if p.HealthcheckPort != nil {
		rc.HealthcheckPort = *p.HealthcheckPort
	}
	return nil
}

// filePart is what one decoded file contributes to the model.
type filePart struct {
	runtime []runtimePatch
	modules []ModuleDecl
}

func (m *Model) merge(part *filePart) error {
	for _, p := range part.runtime {
		if err := p.apply(&m.Runtime); err != nil {
			return err
		}
	}
	m.Modules = append(m.Modules, part.modules...)
	return nil
}

// boolOr dereferences b, falling back to def.
func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
