package graph

import "errors"

// Precondition failures reported by the graph algorithms.
var (
	// ErrEmptyGraph is returned by algorithms that need at least one node or edge.
	ErrEmptyGraph = errors.New("graph is empty")

	// ErrNotConnected is returned when the undirected projection has more than one component.
	ErrNotConnected = errors.New("graph is not connected")

	// ErrNotStronglyConnected is returned when some node cannot reach another along directed edges.
	ErrNotStronglyConnected = errors.New("graph is not strongly connected")

	// ErrNoCycle is returned by FindCycle on an acyclic graph.
	ErrNoCycle = errors.New("no cycle found")

	// ErrUndefined is returned when a coefficient has no defined value, e.g. zero variance.
	ErrUndefined = errors.New("value is undefined for this graph")

	// ErrNegativeCycle is returned by FloydWarshall when a cycle has negative total weight.
	ErrNegativeCycle = errors.New("negative weight cycle detected")

	// ErrRecursionLimit is returned when a recursive algorithm exceeds its depth limit.
	ErrRecursionLimit = errors.New("maximum recursion depth exceeded")
)
