package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/specialistvlad/linen/internal/dag"
	"github.com/specialistvlad/linen/internal/eventbus"
	"github.com/specialistvlad/linen/internal/module"
)

// runtime is the module.Runtime handed to a module at Initialize.
type runtime struct {
	reg    *Registry
	logger *slog.Logger
}

func (rt runtime) Bus() *eventbus.Bus { return rt.reg.bus }

func (rt runtime) Lookup(name string) (module.Module, error) { return rt.reg.Module(name) }

func (rt runtime) Logger() *slog.Logger { return rt.logger }

// Load activates name, initializing its not-yet-active transitive
// dependencies first. It is a no-op for an active module. The whole plan is
// validated and claimed before any Initialize runs; if an Initialize fails,
// the modules initialized before it stay active and Load may be retried.
// No registry lock is held while Initialize runs, so Initialize and the event
// handlers it triggers may call Load and Unload for unrelated modules. A plan
// that touches a module another call is initializing or shutting down fails
// with ErrTransitionInProgress.
func (r *Registry) Load(name string) error {
	plan, err := r.claimPlan(name)
	if err != nil {
		r.logger.Error("Module load rejected.", "module", name, "error", err)
		return err
	}
	if len(plan) == 0 {
		r.logger.Debug("Module already active.", "module", name)
		return nil
	}

	for i, d := range plan {
		rt := runtime{reg: r, logger: r.logger.With("module", d.name)}
		if err := guard(func() error { return d.module.Initialize(rt) }); err != nil {
			r.release(plan[i:])
			err = fmt.Errorf("%w: '%s': %w", ErrInitializeFailed, d.name, err)
			r.logger.Error("Module initialization failed.", "module", d.name, "target", name, "error", err)
			return err
		}
		if err := r.commitLoad(d); err != nil {
			r.release(plan[i+1:])
			return err
		}
		r.logger.Info("Module initialized.", "module", d.name)
	}
	return nil
}

// claimPlan returns the inactive descriptors Load must initialize,
// dependencies first, and marks them as loading.
func (r *Registry) claimPlan(name string) ([]*descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closing {
		return nil, fmt.Errorf("%w: cannot load '%s'", ErrShuttingDown, name)
	}
	d, ok := r.modules[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNotRegistered, name)
	}
	if d.transition != settled {
		return nil, fmt.Errorf("%w: '%s' is being %s", ErrTransitionInProgress, name, d.transition)
	}
	if d.active {
		return nil, nil
	}

	names, err := r.graph.Closure(name)
	if err != nil {
		var missing *dag.MissingError
		var cycle *dag.CycleError
		switch {
		case errors.As(err, &missing):
			return nil, fmt.Errorf("%w: '%s' requires '%s'", ErrMissingDependency, missing.Node, missing.Dependency)
		case errors.As(err, &cycle):
			return nil, fmt.Errorf("%w: %w", ErrCyclicDependency, err)
		default:
			return nil, err
		}
	}

	plan := make([]*descriptor, 0, len(names))
	for _, n := range names {
		dep := r.modules[n]
		if dep.transition != settled {
			return nil, fmt.Errorf("%w: '%s' needs '%s', which is being %s", ErrTransitionInProgress, name, n, dep.transition)
		}
		if !dep.active {
			plan = append(plan, dep)
		}
	}
	for _, dep := range plan {
		dep.transition = loading
	}
	return plan, nil
}

// commitLoad marks an initialized descriptor active. If the registry was torn
// down meanwhile, the module is shut down again and ErrShuttingDown returned.
func (r *Registry) commitLoad(d *descriptor) error {
	r.mu.Lock()
	d.transition = settled
	if r.closing || r.modules[d.name] != d {
		r.mu.Unlock()
		err := fmt.Errorf("%w: '%s' was initialized during teardown", ErrShuttingDown, d.name)
		r.logger.Warn("Discarding module initialized during teardown.", "module", d.name)
		if serr := guard(d.module.Shutdown); serr != nil {
			err = errors.Join(err, fmt.Errorf("%w: '%s': %w", ErrShutdownFailed, d.name, serr))
		}
		return err
	}
	r.activations++
	d.active = true
	d.activated = r.activations
	r.mu.Unlock()
	return nil
}

// release drops the loading claim on descriptors that were not initialized.
func (r *Registry) release(ds []*descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range ds {
		d.transition = settled
	}
}

// Unload shuts name down and marks it inactive. It is a no-op for an
// inactive module and fails with ErrIsADependency while an active or loading
// module depends on it. A failing Shutdown is reported, but the module is
// still marked inactive. Shutdown runs without a registry lock held.
func (r *Registry) Unload(name string) error {
	r.mu.Lock()
	d, ok := r.modules[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: '%s'", ErrNotRegistered, name)
	}
	if d.transition != settled {
		r.mu.Unlock()
		err := fmt.Errorf("%w: '%s' is being %s", ErrTransitionInProgress, name, d.transition)
		r.logger.Warn("Module unload rejected.", "module", name, "error", err)
		return err
	}
	if !d.active {
		r.mu.Unlock()
		return nil
	}
	var blockers []string
	for _, dependent := range r.graph.Dependents(name) {
		if dd := r.modules[dependent]; dd.active || dd.transition == loading {
			blockers = append(blockers, dependent)
		}
	}
	if len(blockers) > 0 {
		r.mu.Unlock()
		err := fmt.Errorf("%w: '%s' is required by %s", ErrIsADependency, name, joinNames(blockers))
		r.logger.Warn("Module unload rejected.", "module", name, "error", err)
		return err
	}
	d.transition = unloading
	r.mu.Unlock()

	return r.shutdown(d)
}

// shutdown calls Shutdown on a descriptor claimed as unloading and marks it
// inactive regardless of the outcome.
func (r *Registry) shutdown(d *descriptor) error {
	err := guard(d.module.Shutdown)

	r.mu.Lock()
	d.active = false
	d.activated = 0
	d.transition = settled
	r.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("%w: '%s': %w", ErrShutdownFailed, d.name, err)
		r.logger.Error("Module shutdown failed.", "module", d.name, "error", err)
		return err
	}
	r.logger.Info("Module shut down.", "module", d.name)
	return nil
}

// Tick calls Update(dt) on every active module in initialization order, then
// drains the event bus exactly once. A failing or panicking Update is logged
// and counted; the remaining modules still update.
func (r *Registry) Tick(dt time.Duration) {
	r.mu.RLock()
	active := r.activeLocked()
	r.mu.RUnlock()

	for _, d := range active {
		if err := guard(func() error { return d.module.Update(dt) }); err != nil {
			r.updateFailures.Add(1)
			r.logger.Error("Module update failed.", "module", d.name, "error", err)
		}
	}
	r.bus.ProcessEvents()
}

// Each calls fn for every active module in initialization order and stops at
// the first error.
func (r *Registry) Each(fn func(module.Module) error) error {
	r.mu.RLock()
	active := r.activeLocked()
	r.mu.RUnlock()

	for _, d := range active {
		if err := fn(d.module); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown shuts down every active module in reverse initialization order,
// then forgets all modules. Errors from individual modules are joined; every
// module is attempted. While it runs, Register and Load fail with
// ErrShuttingDown; modules another call is unloading are left to that call.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	if r.closing {
		r.mu.Unlock()
		return fmt.Errorf("%w: shutdown already running", ErrShuttingDown)
	}
	r.closing = true
	active := slices.DeleteFunc(r.activeLocked(), func(d *descriptor) bool {
		return d.transition != settled
	})
	for _, d := range active {
		d.transition = unloading
	}
	r.mu.Unlock()
	slices.Reverse(active)

	var errs []error
	for _, d := range active {
		if err := r.shutdown(d); err != nil {
			errs = append(errs, err)
		}
	}

	r.mu.Lock()
	count := len(r.modules)
	r.modules = make(map[string]*descriptor)
	r.graph = dag.New()
	r.order = nil
	r.orderErr = nil
	r.closing = false
	r.mu.Unlock()

	r.logger.Info("Registry shut down.", "modules", count, "failures", len(errs))
	return errors.Join(errs...)
}
