package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/linen/internal/config"
	"github.com/specialistvlad/linen/internal/ctxlog"
	"github.com/specialistvlad/linen/internal/eventbus"
	"github.com/specialistvlad/linen/internal/registry"
)

// App encapsulates the runtime's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	ctx    context.Context
	logger *slog.Logger
	runID  uuid.UUID

	config   Config
	model    *config.Model
	bus      *eventbus.Bus
	registry *registry.Registry

	httpServer *http.Server
	ticks      atomic.Uint64

	// started gates the snapshot save: a runtime that never started must not
	// overwrite an earlier snapshot.
	started   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewApp is the constructor for the driver. It returns a fully initialized
// App instance with its own isolated logger, bus and registry, with every
// enabled declared module registered but not loaded. Configuration errors and
// mismatches between declarations and the catalog are programmer errors and
// panic.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, catalog ...registry.Factory) *App {
	runID := uuid.New()
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW).With("run_id", runID.String())
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Bootstrap logger configured.")

	var configPaths []string
	if appConfig.ConfigPath != "" {
		configPaths = append(configPaths, appConfig.ConfigPath)
	}
	model, err := loader.Load(ctx, configPaths...)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	effective := resolveConfig(*appConfig, model.Runtime)

	// Rebuild the logger now that files and environment had their say.
	logger = newLogger(effective.LogLevel, effective.LogFormat, outW).With("run_id", runID.String())
	ctx = ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Configuration loaded.", "modules_declared", len(model.Modules), "tick_rate", effective.TickRate, "ticks", effective.Ticks)

	if len(catalog) == 0 {
		catalog = coreModules
	}
	cat, err := registry.NewCatalog(catalog...)
	if err != nil {
		panic(err)
	}
	if err := registry.ValidateDeclarations(ctx, model.Modules, cat); err != nil {
		panic(err)
	}
	logger.Debug("Module declarations validated against catalog.", "catalog", cat.Names())

	bus := eventbus.New(eventbus.WithLogger(logger))
	reg := registry.New(bus, registry.WithLogger(logger))
	for _, decl := range model.Modules {
		if !decl.Enabled {
			logger.Debug("Module disabled, skipping registration.", "module", decl.Name)
			continue
		}
		m, err := cat.Build(decl.Name, decl.Settings)
		if err != nil {
			panic(err)
		}
		if err := reg.Register(m); err != nil {
			panic(err)
		}
	}
	if err := reg.Err(); err != nil {
		logger.Warn("Registry is degraded.", "error", err)
	}
	logger.Debug("All declared modules registered.", "order", reg.Order())

	return &App{
		outW:     outW,
		ctx:      ctx,
		logger:   logger,
		runID:    runID,
		config:   effective,
		model:    model,
		bus:      bus,
		registry: reg,
	}
}

// resolveConfig layers the entrypoint's explicit settings over the loaded
// runtime configuration.
func resolveConfig(cfg Config, rc config.RuntimeConfig) Config {
	if cfg.LogLevel == "" {
		cfg.LogLevel = rc.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = rc.LogFormat
	}
	if cfg.TickRate == 0 {
		cfg.TickRate = rc.TickRate
	}
	if cfg.Ticks == 0 {
		cfg.Ticks = rc.Ticks
	}
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = rc.SnapshotPath
	}
	if cfg.HealthcheckPort == 0 {
		cfg.HealthcheckPort = rc.HealthcheckPort
	}
	return cfg
}

// Registry returns the application's registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Bus returns the application's event bus.
func (a *App) Bus() *eventbus.Bus {
	return a.bus
}

// Config returns the effective configuration.
func (a *App) Config() Config {
	return a.config
}

// RunID identifies this App instance in logs and health reports.
func (a *App) RunID() uuid.UUID {
	return a.runID
}

// Ticks returns how many ticks have been driven so far.
func (a *App) Ticks() uint64 {
	return a.ticks.Load()
}

// Tick drives one frame: module updates in order, then one bus drain.
func (a *App) Tick(dt time.Duration) {
	a.registry.Tick(dt)
	a.ticks.Add(1)
}
