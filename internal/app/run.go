package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/linen/internal/ctxlog"
	"github.com/specialistvlad/linen/internal/snapshot"
)

// Start loads every autoload module in declaration order, restores the
// snapshot when one exists and starts the health check server if enabled.
func (a *App) Start() error {
	a.logger.Debug("App.Start method started.")

	for _, decl := range a.model.Modules {
		if !decl.Enabled || !decl.Autoload {
			continue
		}
		if err := a.registry.Load(decl.Name); err != nil {
			return fmt.Errorf("failed to autoload module '%s': %w", decl.Name, err)
		}
	}

	if err := a.restoreSnapshot(); err != nil {
		return err
	}

	a.healthCheckServer()
	a.started.Store(true)
	a.logger.Info("Runtime started.", "active_order", a.registry.Order(), "tick_rate", a.config.TickRate)
	return nil
}

// Run starts the runtime and ticks it every TickRate until the configured
// number of ticks is reached or ctx is done, then closes the App. With
// PrintOrder set it only prints the initialization order.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.PrintOrder {
		err := a.PrintOrder(a.outW)
		return errors.Join(err, a.Close())
	}

	if err := a.Start(); err != nil {
		return errors.Join(err, a.Close())
	}

	ticker := time.NewTicker(a.config.TickRate)
	defer ticker.Stop()

	last := time.Now()
	a.logger.Info("🚀 Tick loop started.", "ticks", a.config.Ticks)
loop:
	for a.config.Ticks == 0 || a.Ticks() < uint64(a.config.Ticks) {
		select {
		case <-ctx.Done():
			a.logger.Info("Tick loop cancelled.", "reason", context.Cause(ctx))
			break loop
		case now := <-ticker.C:
			a.Tick(now.Sub(last))
			last = now
		}
	}
	a.logger.Info("🏁 Tick loop finished.", "ticks", a.Ticks(), "update_failures", a.registry.UpdateFailures(), "bus", a.bus.Stats())

	return a.Close()
}

// PrintOrder writes the initialization order, one module per line, followed
// by the degradation reason if any.
func (a *App) PrintOrder(w io.Writer) error {
	for i, name := range a.registry.Order() {
		if _, err := fmt.Fprintf(w, "%d. %s\n", i+1, name); err != nil {
			return err
		}
	}
	if err := a.registry.Err(); err != nil {
		if _, werr := fmt.Fprintf(w, "degraded: %v\n", err); werr != nil {
			return werr
		}
	}
	return nil
}

// Close saves the snapshot, shuts the registry down in reverse order and stops
// the health check server. It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.logger.Debug("Closing app...")
		saveErr := a.saveSnapshot()
		shutdownErr := a.registry.Shutdown()
		healthErr := a.closeHealthCheckServer()
		a.closeErr = errors.Join(saveErr, shutdownErr, healthErr)
		if a.closeErr != nil {
			a.logger.Error("App closed with errors.", "error", a.closeErr)
			return
		}
		a.logger.Debug("App closed.")
	})
	return a.closeErr
}

func (a *App) restoreSnapshot() error {
	path := a.config.SnapshotPath
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Info("No snapshot to restore.", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if err := snapshot.Restore(a.ctx, a.registry, f); err != nil {
		return fmt.Errorf("failed to restore snapshot %s: %w", path, err)
	}
	a.logger.Info("Snapshot restored.", "path", path)
	return nil
}

// saveSnapshot writes to a temporary file next to the target and renames it
// into place, so an interrupted save never truncates the previous snapshot.
func (a *App) saveSnapshot() error {
	path := a.config.SnapshotPath
	if path == "" || !a.started.Load() {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := snapshot.Save(a.ctx, a.registry, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	a.logger.Info("Snapshot saved.", "path", path)
	return nil
}
