package registry

import "errors"

var (
	// ErrDuplicateRegistration indicates a module with the same name is already registered.
	ErrDuplicateRegistration = errors.New("module already registered")
	// ErrMissingDependency indicates a declared dependency names no registered module.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrCyclicDependency indicates the dependency graph contains a cycle.
	ErrCyclicDependency = errors.New("cyclic dependency")
	// ErrIsADependency indicates an active module still depends on the target.
	ErrIsADependency = errors.New("module is a dependency of an active module")
	// ErrNotRegistered indicates no module is registered under the name.
	ErrNotRegistered = errors.New("module not registered")
	// ErrNotActive indicates the module is registered but not loaded.
	ErrNotActive = errors.New("module not active")
	// ErrTypeMismatch indicates the module does not implement the requested type.
	ErrTypeMismatch = errors.New("module type mismatch")
	// ErrModuleActive indicates an operation that requires an inactive module.
	ErrModuleActive = errors.New("module is active")
	// ErrInitializeFailed wraps an error (or panic) raised by Initialize.
	ErrInitializeFailed = errors.New("module initialize failed")
	// ErrShutdownFailed wraps an error (or panic) raised by Shutdown.
	ErrShutdownFailed = errors.New("module shutdown failed")
	// ErrInvalidModule indicates a nil module or one with an empty name.
	ErrInvalidModule = errors.New("invalid module")
	// ErrTransitionInProgress indicates a module involved in the operation is
	// being initialized or shut down by another call.
	ErrTransitionInProgress = errors.New("module transition in progress")
	// ErrShuttingDown indicates the registry is tearing down.
	ErrShuttingDown = errors.New("registry is shutting down")
)
