// Package graph implements the service dependency multigraph and the metrics computed over it.
//
// A Graph is a directed multigraph: nodes are service names kept in insertion order and every
// edge is one observed caller to callee relation carrying a weight (call count). Self-loops and
// parallel edges are valid.
//
// Graph is not safe for concurrent use.
package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultWeight is the weight of an edge built without call counts.
const DefaultWeight int64 = 1

// Edge is one directed caller to callee relation.
type Edge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int64  `json:"weight"`
}

// Graph is a directed multigraph snapshot.
type Graph struct {
	name  string
	start int64
	end   int64

	nodes []string
	index map[string]int
	edges []Edge
	out   map[string][]int
	in    map[string][]int
}

// New creates an empty graph covering [start, end). An empty name defaults to
// graph_{start}_{end}.
func New(name string, start, end int64) *Graph {
	if name == "" {
		name = SnapshotName(start, end)
	}
	return &Graph{
		name:  name,
		start: start,
		end:   end,
		index: make(map[string]int),
		out:   make(map[string][]int),
		in:    make(map[string][]int),
	}
}

// SnapshotName returns the deterministic name of the snapshot for a window.
func SnapshotName(start, end int64) string {
	return fmt.Sprintf("graph_%d_%d", start, end)
}

// ParseSnapshotName extracts the window bounds from a graph_{start}_{end} name.
func ParseSnapshotName(name string) (start, end int64, ok bool) {
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return 0, 0, false
	}
	s, err := strconv.ParseInt(parts[len(parts)-2], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	e, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return s, e, true
}

// Name returns the snapshot name.
func (g *Graph) Name() string { return g.name }

// SetName renames the snapshot.
func (g *Graph) SetName(name string) { g.name = name }

// Start returns the window start in epoch milliseconds.
func (g *Graph) Start() int64 { return g.start }

// End returns the window end in epoch milliseconds.
func (g *Graph) End() int64 { return g.end }

// AddNode adds a service node. Empty names are rejected.
func (g *Graph) AddNode(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := g.index[name]; !ok {
		g.index[name] = len(g.nodes)
		g.nodes = append(g.nodes, name)
	}
	return true
}

// AddEdge adds one edge, creating missing nodes. Edges with an empty endpoint are rejected.
func (g *Graph) AddEdge(from, to string, weight int64) bool {
	if from == "" || to == "" {
		return false
	}
	g.AddNode(from)
	g.AddNode(to)
	i := len(g.edges)
	g.edges = append(g.edges, Edge{From: from, To: to, Weight: weight})
	g.out[from] = append(g.out[from], i)
	g.in[to] = append(g.in[to], i)
	return true
}

// Clear removes every node and edge, keeping the name and window.
func (g *Graph) Clear() {
	g.nodes = nil
	g.edges = nil
	g.index = make(map[string]int)
	g.out = make(map[string][]int)
	g.in = make(map[string][]int)
}

// Copy returns a deep copy of g.
func (g *Graph) Copy() *Graph {
	c := New(g.name, g.start, g.end)
	for _, n := range g.nodes {
		c.AddNode(n)
	}
	for _, e := range g.edges {
		c.AddEdge(e.From, e.To, e.Weight)
	}
	return c
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// HasNode reports whether name is a node of g.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.index[name]
	return ok
}

// NumberOfNodes returns the node count.
func (g *Graph) NumberOfNodes() int { return len(g.nodes) }

// NumberOfEdges returns the edge count, parallel edges included.
func (g *Graph) NumberOfEdges() int { return len(g.edges) }

// OutEdges returns the edges leaving name.
func (g *Graph) OutEdges(name string) []Edge {
	return g.collect(g.out[name])
}

// InEdges returns the edges entering name.
func (g *Graph) InEdges(name string) []Edge {
	return g.collect(g.in[name])
}

func (g *Graph) collect(idx []int) []Edge {
	edges := make([]Edge, 0, len(idx))
	for _, i := range idx {
		edges = append(edges, g.edges[i])
	}
	return edges
}

// Successors returns the heads of the edges leaving name, one entry per edge.
func (g *Graph) Successors(name string) []string {
	succ := make([]string, 0, len(g.out[name]))
	for _, i := range g.out[name] {
		succ = append(succ, g.edges[i].To)
	}
	return succ
}

// Predecessors returns the tails of the edges entering name, one entry per edge.
func (g *Graph) Predecessors(name string) []string {
	pred := make([]string, 0, len(g.in[name]))
	for _, i := range g.in[name] {
		pred = append(pred, g.edges[i].From)
	}
	return pred
}

// OutDegree returns the number of edges leaving name.
func (g *Graph) OutDegree(name string) int { return len(g.out[name]) }

// InDegree returns the number of edges entering name.
func (g *Graph) InDegree(name string) int { return len(g.in[name]) }

// Degree returns in + out degree; a self-loop counts twice.
func (g *Graph) Degree(name string) int { return g.InDegree(name) + g.OutDegree(name) }

// undirected returns the simple undirected projection as insertion-ordered adjacency lists.
func (g *Graph) undirected() map[string][]string {
	adj := make(map[string][]string, len(g.nodes))
	seen := make(map[[2]string]bool)
	link := func(a, b string) {
		if seen[[2]string{a, b}] {
			return
		}
		seen[[2]string{a, b}] = true
		adj[a] = append(adj[a], b)
	}
	for _, n := range g.nodes {
		adj[n] = nil
	}
	for _, e := range g.edges {
		if e.From == e.To {
			continue
		}
		link(e.From, e.To)
		link(e.To, e.From)
	}
	return adj
}

// simple returns the directed projection without parallel edges, self-loops kept.
func (g *Graph) simple() map[string][]string {
	adj := make(map[string][]string, len(g.nodes))
	seen := make(map[[2]string]bool)
	for _, n := range g.nodes {
		adj[n] = nil
	}
	for _, e := range g.edges {
		k := [2]string{e.From, e.To}
		if seen[k] {
			continue
		}
		seen[k] = true
		adj[e.From] = append(adj[e.From], e.To)
	}
	return adj
}
