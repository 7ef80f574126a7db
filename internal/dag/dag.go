package dag

import (
	"fmt"
	"slices"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// Set adds the node id with the given dependencies, or replaces the
// dependencies of an existing node while keeping its insertion position.
// Duplicate dependency names are collapsed, keeping the first occurrence.
func (g *Graph) Set(id string, deps []string) {
	uniq := make([]string, 0, len(deps))
	for _, d := range deps {
		if !slices.Contains(uniq, d) {
			uniq = append(uniq, d)
		}
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if n, ok := g.nodes[id]; ok {
		n.deps = uniq
		return
	}
	g.nodes[id] = &node{id: id, deps: uniq}
	g.order = append(g.order, id)
}

// Remove deletes the node id. Edges from other nodes that name it are kept
// and become dangling. It reports whether the node existed.
func (g *Graph) Remove(id string) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return false
	}
	delete(g.nodes, id)
	g.order = slices.DeleteFunc(g.order, func(s string) bool { return s == id })
	return true
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Nodes returns all node IDs in insertion order.
func (g *Graph) Nodes() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return slices.Clone(g.order)
}

// Dependencies returns the declared dependencies of id in declaration order,
// including ones that are not nodes of the graph.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return slices.Clone(n.deps), nil
}

// Dependents returns the nodes that directly depend on id, in insertion order.
// id itself need not be a node.
func (g *Graph) Dependents(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var out []string
	for _, other := range g.order {
		if slices.Contains(g.nodes[other].deps, id) {
			out = append(out, other)
		}
	}
	return out
}

// DetectCycles checks the whole graph for cycles. It returns a *CycleError
// describing the first cycle found, or nil.
func (g *Graph) DetectCycles() error {
	_, err := g.TopologicalSort()
	return err
}

// TopologicalSort returns every node ordered so that each node comes after all
// of its dependencies. Dependencies that are not nodes are ignored. A cycle
// yields a *CycleError and no order.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	w := newWalker(g, false)
	for _, id := range g.order {
		if err := w.visit(id); err != nil {
			return nil, err
		}
	}
	return w.out, nil
}

// Closure returns id and all of its transitive dependencies, dependencies
// first. A dependency that is not a node yields a *MissingError; a cycle
// reachable from id yields a *CycleError.
func (g *Graph) Closure(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if _, ok := g.nodes[id]; !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	w := newWalker(g, true)
	if err := w.visit(id); err != nil {
		return nil, err
	}
	return w.out, nil
}

const (
	unvisited = iota
	onStack
	done
)

type frame struct {
	id   string
	next int
}

// walker runs an iterative post-order DFS. Callers hold the read lock.
type walker struct {
	g      *Graph
	strict bool
	state  map[string]int
	stack  []frame
	out    []string
}

func newWalker(g *Graph, strict bool) *walker {
	return &walker{
		g:      g,
		strict: strict,
		state:  make(map[string]int, len(g.nodes)),
		out:    make([]string, 0, len(g.nodes)),
	}
}

func (w *walker) visit(root string) error {
	if w.state[root] != unvisited {
		return nil
	}
	w.state[root] = onStack
	w.stack = append(w.stack[:0], frame{id: root})

	for len(w.stack) > 0 {
		top := &w.stack[len(w.stack)-1]
		deps := w.g.nodes[top.id].deps

		if top.next == len(deps) {
			// All dependencies emitted; this node is safe to emit.
			w.state[top.id] = done
			w.out = append(w.out, top.id)
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}

		dep := deps[top.next]
		top.next++

		if _, ok := w.g.nodes[dep]; !ok {
			if w.strict {
				return &MissingError{Node: top.id, Dependency: dep}
			}
			continue
		}

		switch w.state[dep] {
		case done:
		case onStack:
			return &CycleError{Path: w.cyclePath(dep)}
		default:
			w.state[dep] = onStack
			w.stack = append(w.stack, frame{id: dep})
		}
	}
	return nil
}

// cyclePath returns the stack segment from dep to the top, closed with dep.
func (w *walker) cyclePath(dep string) []string {
	start := slices.IndexFunc(w.stack, func(f frame) bool { return f.id == dep })
	path := make([]string, 0, len(w.stack)-start+1)
	for _, f := range w.stack[start:] {
		path = append(path, f.id)
	}
	return append(path, dep)
}
