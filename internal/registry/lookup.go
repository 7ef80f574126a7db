package registry

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/specialistvlad/linen/internal/module"
)

// Module returns the active module registered under name.
func (r *Registry) Module(name string) (module.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.modules[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNotRegistered, name)
	}
	if !d.active {
		return nil, fmt.Errorf("%w: '%s'", ErrNotActive, name)
	}
	return d.module, nil
}

// Get returns the active module name as a T. The boolean is false when the
// module is absent, inactive, or not a T.
func Get[T any](r *Registry, name string) (T, bool) {
	v, err := Resolve[T](r, name)
	return v, err == nil
}

// Resolve is Get with the reason for a miss: ErrNotRegistered, ErrNotActive
// or ErrTypeMismatch.
func Resolve[T any](r *Registry, name string) (T, error) {
	var zero T
	m, err := r.Module(name)
	if err != nil {
		return zero, err
	}
	v, ok := m.(T)
	if !ok {
		return zero, fmt.Errorf("%w: '%s' is %T, not %s", ErrTypeMismatch, name, m, reflect.TypeFor[T]())
	}
	return v, nil
}

// Find returns the first active module, in initialization order, that
// implements T.
func Find[T any](r *Registry) (T, bool) {
	var found T
	ok := false
	_ = r.Each(func(m module.Module) error {
		if v, match := m.(T); match {
			found, ok = v, true
			return errStop
		}
		return nil
	})
	return found, ok
}

var errStop = errors.New("stop iteration")
