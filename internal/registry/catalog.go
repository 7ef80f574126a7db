package registry

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/linen/internal/module"
)

// Factory builds a fresh instance of one module kind from its settings.
type Factory struct {
	Name string
	New  func(settings map[string]string) (module.Module, error)
}

// Catalog indexes the module kinds a driver knows how to build.
type Catalog struct {
	factories map[string]Factory
	names     []string
}

// NewCatalog indexes factories by name. Names must be unique and non-empty.
func NewCatalog(factories ...Factory) (*Catalog, error) {
	c := &Catalog{factories: make(map[string]Factory, len(factories))}
	for _, f := range factories {
		if f.Name == "" || f.New == nil {
			return nil, fmt.Errorf("%w: catalog entry %q is incomplete", ErrInvalidModule, f.Name)
		}
		if _, exists := c.factories[f.Name]; exists {
			return nil, fmt.Errorf("%w: catalog entry '%s'", ErrDuplicateRegistration, f.Name)
		}
		c.factories[f.Name] = f
		c.names = append(c.names, f.Name)
	}
	return c, nil
}

// Names returns the catalog entries in the order they were given.
func (c *Catalog) Names() []string { return slices.Clone(c.names) }

// Has reports whether the catalog can build name.
func (c *Catalog) Has(name string) bool {
	_, ok := c.factories[name]
	return ok
}

// Build creates the module name. The built module must report the same name.
func (c *Catalog) Build(name string, settings map[string]string) (module.Module, error) {
	f, ok := c.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: no catalog entry for '%s'", ErrNotRegistered, name)
	}
	m, err := f.New(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to build module '%s': %w", name, err)
	}
	if m == nil || m.Name() != name {
		return nil, fmt.Errorf("%w: catalog entry '%s' built %T", ErrInvalidModule, name, m)
	}
	return m, nil
}
