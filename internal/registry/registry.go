package registry

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/linen/internal/ctxlog"
	"github.com/specialistvlad/linen/internal/dag"
	"github.com/specialistvlad/linen/internal/eventbus"
	"github.com/specialistvlad/linen/internal/module"
)

// Option customizes Registry construction.
type Option func(*Registry)

// WithLogger sets the logger for lifecycle events. Records are tagged with
// component=registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = ctxlog.OrDiscard(logger).With("component", "registry")
	}
}

// descriptor is the registry's record of one module.
type descriptor struct {
	name   string
	module module.Module
	deps   []string
	active bool
	// transition is set while Initialize or Shutdown runs outside the locks.
	transition transition
	// activated is the activation sequence number, zero while inactive.
	activated uint64
}

type transition uint8

const (
	settled transition = iota
	loading
	unloading
)

func (t transition) String() string {
	switch t {
	case loading:
		return "initialized"
	case unloading:
		return "shut down"
	default:
		return "settled"
	}
}

// Registry owns the registered modules and their lifecycle. It is safe for
// concurrent use.
type Registry struct {
	mu sync.RWMutex

	modules  map[string]*descriptor
	graph    *dag.Graph
	order    []string
	orderErr error
	// activations feeds descriptor.activated.
	activations uint64
	// closing is set for the duration of Shutdown.
	closing bool

	bus    *eventbus.Bus
	logger *slog.Logger

	updateFailures atomic.Uint64
}

// New creates an empty registry that drains bus once per Tick. A nil bus is
// replaced by a fresh one.
func New(bus *eventbus.Bus, opts ...Option) *Registry {
	r := &Registry{
		modules: make(map[string]*descriptor),
		graph:   dag.New(),
		logger:  ctxlog.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if bus == nil {
		bus = eventbus.New(eventbus.WithLogger(r.logger))
	}
	r.bus = bus
	return r
}

// Bus returns the event bus the registry drains and hands to modules.
func (r *Registry) Bus() *eventbus.Bus { return r.bus }

// Register stores m under its name and recomputes the initialization order.
// It does not initialize the module. If m closes a dependency cycle the module
// stays registered, the previous order is kept and Err reports the cycle.
func (r *Registry) Register(m module.Module) error {
	if m == nil {
		return fmt.Errorf("%w: nil module", ErrInvalidModule)
	}
	name := m.Name()
	if name == "" {
		return fmt.Errorf("%w: %T has an empty name", ErrInvalidModule, m)
	}
	deps := slices.DeleteFunc(slices.Clone(m.Dependencies()), func(s string) bool { return s == "" })

	r.mu.Lock()
	if r.closing {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot register '%s'", ErrShuttingDown, name)
	}
	if _, exists := r.modules[name]; exists {
		r.mu.Unlock()
		r.logger.Error("Module registration rejected.", "module", name, "error", ErrDuplicateRegistration)
		return fmt.Errorf("%w: '%s'", ErrDuplicateRegistration, name)
	}
	r.modules[name] = &descriptor{name: name, module: m, deps: deps}
	r.graph.Set(name, deps)
	r.recomputeLocked()
	r.mu.Unlock()

	r.logger.Debug("Module registered.", "module", name, "dependencies", deps)
	return nil
}

// Unregister removes an inactive module and recomputes the order.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.modules[name]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrNotRegistered, name)
	}
	if d.active || d.transition != settled {
		return fmt.Errorf("%w: unload '%s' before unregistering it", ErrModuleActive, name)
	}
	delete(r.modules, name)
	r.graph.Remove(name)
	r.recomputeLocked()

	r.logger.Debug("Module unregistered.", "module", name)
	return nil
}

// recomputeLocked refreshes the order from the graph. On a cycle the last
// valid order is kept, minus modules that are no longer registered.
func (r *Registry) recomputeLocked() {
	order, err := r.graph.TopologicalSort()
	if err != nil {
		r.orderErr = fmt.Errorf("%w: %w", ErrCyclicDependency, err)
		r.order = slices.DeleteFunc(r.order, func(n string) bool {
			_, ok := r.modules[n]
			return !ok
		})
		r.logger.Error("Dependency cycle detected, keeping previous initialization order.", "error", err, "order", r.order)
		return
	}
	if r.orderErr != nil {
		r.logger.Info("Dependency cycle resolved.")
	}
	r.order = order
	r.orderErr = nil
	r.logger.Debug("Initialization order computed.", "order", order)
}

// Order returns a copy of the last valid initialization order.
func (r *Registry) Order() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Err reports why the registry is degraded, or nil. A non-nil result wraps
// ErrCyclicDependency and a *dag.CycleError.
func (r *Registry) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.orderErr
}

// IsActive reports whether name is registered and loaded.
func (r *Registry) IsActive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.modules[name]
	return ok && d.active
}

// Names returns every registered module name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.graph.Nodes()
}

// ModuleStatus is a read-only summary of one registered module.
type ModuleStatus struct {
	Name         string   `json:"name"`
	Active       bool     `json:"active"`
	Dependencies []string `json:"dependencies,omitempty"`
	// Position is the index in the initialization order, -1 when absent.
	Position int `json:"position"`
}

// Status summarizes every registered module in registration order.
func (r *Registry) Status() []ModuleStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModuleStatus, 0, len(r.modules))
	for _, name := range r.graph.Nodes() {
		d := r.modules[name]
		out = append(out, ModuleStatus{
			Name:         name,
			Active:       d.active,
			Dependencies: slices.Clone(d.deps),
			Position:     slices.Index(r.order, name),
		})
	}
	return out
}

// UpdateFailures returns how many Update calls have failed or panicked.
func (r *Registry) UpdateFailures() uint64 {
	return r.updateFailures.Load()
}

// activeLocked returns the active modules in execution order: those in the
// initialization order first, then any others by activation sequence.
func (r *Registry) activeLocked() []*descriptor {
	out := make([]*descriptor, 0, len(r.modules))
	for _, name := range r.order {
		if d, ok := r.modules[name]; ok && d.active {
			out = append(out, d)
		}
	}
	if len(out) == r.countActiveLocked() {
		return out
	}

	var extra []*descriptor
	for _, d := range r.modules {
		if d.active && !slices.Contains(r.order, d.name) {
			extra = append(extra, d)
		}
	}
	slices.SortFunc(extra, func(a, b *descriptor) int {
		return cmp.Compare(a.activated, b.activated)
	})
	return append(out, extra...)
}

func (r *Registry) countActiveLocked() int {
	n := 0
	for _, d := range r.modules {
		if d.active {
			n++
		}
	}
	return n
}

// guard runs fn and converts a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}

// joinNames formats module names for error messages.
func joinNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, ", ")
}
