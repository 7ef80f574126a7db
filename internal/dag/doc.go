// Package dag maintains the dependency graph between named modules and turns
// it into an initialization order.
//
// Traversals are iterative depth-first searches with explicit stacks, so deep
// dependency chains cannot exhaust the goroutine stack. Roots are visited in
// insertion order and dependencies in declaration order, which makes every
// computed order deterministic for a given sequence of Set calls.
package dag
