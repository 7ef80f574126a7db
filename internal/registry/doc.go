// Package registry owns the module set of one runtime.
//
// The Registry stores every registered module together with a copy of its
// declared dependencies, keeps an initialization order computed from the
// dependency graph, and drives the lifecycle: Load initializes a module after
// its not-yet-active dependencies, Unload refuses while an active module still
// needs the target, Tick updates active modules in order and then drains the
// event bus once, and Shutdown tears everything down in reverse order.
//
// # Degraded state
//
// Registering a module that closes a dependency cycle succeeds, but the order
// is left as it was and Err reports the cycle. The registry recovers as soon
// as the offender is unregistered, because the order is recomputed on every
// topology mutation.
//
// # Locking
//
// mu guards the module table, the order and each module's transition state.
// It is never held while a module callback runs. Load and Unload claim the
// modules they touch as loading or unloading under mu, run Initialize or
// Shutdown without any lock, then commit the result. Callbacks and the event
// handlers they trigger may therefore call any registry method. A call that
// needs a module another call has claimed fails with ErrTransitionInProgress
// instead of waiting, and Register or Load during Shutdown fail with
// ErrShuttingDown.
package registry
