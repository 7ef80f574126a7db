package dag

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable dependency graph keyed by name. Edges point from a
// dependent to the names it depends on. All operations on the graph are
// concurrency-safe.
type Graph struct {
	// mutex protects nodes and order.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// order records insertion order so traversals are deterministic.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	id string
	// deps holds the declared dependency names in declaration order. Names
	// that are not (yet) nodes of the graph are kept but skipped when ordering.
	deps []string
}

// CycleError reports a dependency cycle. Path starts and ends with the same
// node and follows dependency edges.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return "cycle detected"
	}
	return fmt.Sprintf("cycle detected involving node '%s': %s", e.Path[0], strings.Join(e.Path, " -> "))
}

// MissingError reports a dependency on a name that is not in the graph.
type MissingError struct {
	Node       string
	Dependency string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("node '%s' depends on '%s', which is not in the graph", e.Node, e.Dependency)
}
