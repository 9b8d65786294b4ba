package graph

import "fmt"

// DefaultRecursionLimit bounds the call depth of RecursiveSimpleCycles.
const DefaultRecursionLimit = 1000

// SimpleCycles enumerates the elementary circuits of the graph (Johnson's algorithm, iterative).
// Parallel edges are collapsed; a self-loop is a cycle of one node.
func (g *Graph) SimpleCycles() [][]string {
	adj := g.simple()
	cycles := make([][]string, 0)

	for _, v := range g.nodes {
		kept := adj[v][:0:0]
		for _, w := range adj[v] {
			if w == v {
				cycles = append(cycles, []string{v})
				continue
			}
			kept = append(kept, w)
		}
		adj[v] = kept
	}

	removed := make(map[string]bool)
	components := func(nodes []string) [][]string {
		member := make(map[string]bool, len(nodes))
		for _, n := range nodes {
			member[n] = true
		}
		var out [][]string
		for _, scc := range tarjan(nodes, func(n string) []string { return restrict(adj[n], member) }) {
			if len(scc) > 1 {
				out = append(out, scc)
			}
		}
		return out
	}

	live := make([]string, 0, len(g.nodes))
	live = append(live, g.nodes...)
	sccs := components(live)

	for len(sccs) > 0 {
		scc := sccs[len(sccs)-1]
		sccs = sccs[:len(sccs)-1]

		member := make(map[string]bool, len(scc))
		for _, n := range scc {
			if !removed[n] {
				member[n] = true
			}
		}
		succ := func(n string) []string { return restrict(adj[n], member) }

		start := scc[len(scc)-1]
		rest := scc[:len(scc)-1]

		path := []string{start}
		blocked := map[string]bool{start: true}
		closed := make(map[string]bool)
		b := make(map[string]map[string]bool)

		type frame struct {
			node string
			nbrs []string
		}
		stack := []frame{{node: start, nbrs: succ(start)}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if len(top.nbrs) > 0 {
				next := top.nbrs[len(top.nbrs)-1]
				top.nbrs = top.nbrs[:len(top.nbrs)-1]
				if next == start {
					cycles = append(cycles, append([]string(nil), path...))
					for _, p := range path {
						closed[p] = true
					}
				} else if !blocked[next] {
					path = append(path, next)
					delete(closed, next)
					blocked[next] = true
					stack = append(stack, frame{node: next, nbrs: succ(next)})
					continue
				}
			}
			if len(top.nbrs) == 0 {
				node := top.node
				if closed[node] {
					unblock(node, blocked, b)
				} else {
					for _, nbr := range succ(node) {
						if b[nbr] == nil {
							b[nbr] = make(map[string]bool)
						}
						b[nbr][node] = true
					}
				}
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
			}
		}

		removed[start] = true
		sccs = append(sccs, components(rest)...)
	}
	return cycles
}

func unblock(node string, blocked map[string]bool, b map[string]map[string]bool) {
	pending := []string{node}
	for len(pending) > 0 {
		n := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if !blocked[n] {
			continue
		}
		delete(blocked, n)
		for w := range b[n] {
			pending = append(pending, w)
		}
		delete(b, n)
	}
}

func restrict(nodes []string, member map[string]bool) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if member[n] {
			out = append(out, n)
		}
	}
	return out
}

// RecursiveSimpleCycles enumerates elementary circuits with the recursive form of Johnson's
// algorithm. It fails with ErrRecursionLimit when a circuit search goes deeper than limit;
// limit <= 0 selects DefaultRecursionLimit.
func (g *Graph) RecursiveSimpleCycles(limit int) ([][]string, error) {
	if limit <= 0 {
		limit = DefaultRecursionLimit
	}
	adj := g.simple()
	cycles := make([][]string, 0)
	for _, v := range g.nodes {
		kept := adj[v][:0:0]
		for _, w := range adj[v] {
			if w == v {
				cycles = append(cycles, []string{v})
				continue
			}
			kept = append(kept, w)
		}
		adj[v] = kept
	}

	order := make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		order[n] = i
	}

	var path []string
	blocked := make(map[string]bool)
	b := make(map[string][]string)

	var unblockRec func(n string)
	unblockRec = func(n string) {
		if !blocked[n] {
			return
		}
		blocked[n] = false
		for len(b[n]) > 0 {
			w := b[n][len(b[n])-1]
			b[n] = b[n][:len(b[n])-1]
			unblockRec(w)
		}
	}

	var circuit func(this, start string, comp map[string]bool, depth int) (bool, error)
	circuit = func(this, start string, comp map[string]bool, depth int) (bool, error) {
		if depth > limit {
			return false, fmt.Errorf("circuit search from %s: %w", start, ErrRecursionLimit)
		}
		closed := false
		path = append(path, this)
		blocked[this] = true
		for _, next := range restrict(adj[this], comp) {
			if next == start {
				cycles = append(cycles, append([]string(nil), path...))
				closed = true
			} else if !blocked[next] {
				found, err := circuit(next, start, comp, depth+1)
				if err != nil {
					return false, err
				}
				if found {
					closed = true
				}
			}
		}
		if closed {
			unblockRec(this)
		} else {
			for _, next := range restrict(adj[this], comp) {
				if !contains(b[next], this) {
					b[next] = append(b[next], this)
				}
			}
		}
		path = path[:len(path)-1]
		return closed, nil
	}

	for i, s := range g.nodes {
		sub := make(map[string]bool)
		for _, n := range g.nodes[i:] {
			sub[n] = true
		}
		var mincomp []string
		minOrder := len(g.nodes)
		for _, scc := range tarjan(g.nodes[i:], func(n string) []string { return restrict(adj[n], sub) }) {
			for _, n := range scc {
				if order[n] < minOrder {
					minOrder = order[n]
					mincomp = scc
				}
			}
		}
		if len(mincomp) < 2 || minOrder != order[s] {
			continue
		}
		comp := make(map[string]bool, len(mincomp))
		for _, n := range mincomp {
			comp[n] = true
			blocked[n] = false
			b[n] = nil
		}
		if _, err := circuit(s, s, comp, 1); err != nil {
			return nil, err
		}
	}
	return cycles, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FindCycle returns the edges of one directed cycle, found by depth-first search from the nodes
// in insertion order. It returns ErrNoCycle when the graph is acyclic.
func (g *Graph) FindCycle() ([]Edge, error) {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.nodes))

	type frame struct {
		node string
		via  Edge
		next int
	}

	for _, root := range g.nodes {
		if color[root] != white {
			continue
		}
		color[root] = grey
		stack := []frame{{node: root}}
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			out := g.out[f.node]
			if f.next == len(out) {
				color[f.node] = black
				stack = stack[:len(stack)-1]
				continue
			}
			e := g.edges[out[f.next]]
			f.next++
			switch color[e.To] {
			case white:
				color[e.To] = grey
				stack = append(stack, frame{node: e.To, via: e})
			case grey:
				cycle := []Edge{e}
				for i := len(stack) - 1; i > 0 && stack[i].node != e.To; i-- {
					cycle = append(cycle, stack[i].via)
				}
				for l, r := 0, len(cycle)-1; l < r; l, r = l+1, r-1 {
					cycle[l], cycle[r] = cycle[r], cycle[l]
				}
				return cycle, nil
			}
		}
	}
	return nil, ErrNoCycle
}

// IsDirectedAcyclic reports whether the graph has no directed cycle.
func (g *Graph) IsDirectedAcyclic() bool {
	_, err := g.FindCycle()
	return err != nil
}
