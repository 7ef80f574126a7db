package module

import (
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/specialistvlad/linen/internal/eventbus"
)

// Module is the capability contract every registered system implements.
type Module interface {
	// Name is the unique registry key. It must be stable for the module's lifetime.
	Name() string
	// Dependencies lists the names of modules that must be active first.
	Dependencies() []string

	Initialize(rt Runtime) error
	Shutdown() error
	Update(dt time.Duration) error

	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
}

// Runtime is what a module receives at Initialize. It replaces global lookups:
// a module reaches the bus and its peers only through it.
type Runtime interface {
	Bus() *eventbus.Bus
	// Lookup returns the active module registered under name.
	Lookup(name string) (Module, error)
	Logger() *slog.Logger
}

// Base implements the bookkeeping half of Module. Embed it and override the
// lifecycle hooks that matter.
type Base struct {
	name string
	deps []string
}

// NewBase returns a Base with the given identity. deps is copied.
func NewBase(name string, deps ...string) Base {
	return Base{name: name, deps: slices.Clone(deps)}
}

func (b Base) Name() string { return b.name }

func (b Base) Dependencies() []string { return slices.Clone(b.deps) }

func (Base) Initialize(Runtime) error { return nil }

func (Base) Shutdown() error { return nil }

func (Base) Update(time.Duration) error { return nil }

func (Base) Serialize(io.Writer) error { return nil }

func (Base) Deserialize(io.Reader) error { return nil }
