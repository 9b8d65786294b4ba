package graph

// ConnectedComponents returns the components of the undirected projection. Components are
// listed in order of their first node; nodes inside a component in discovery order.
func (g *Graph) ConnectedComponents() [][]string {
	adj := g.undirected()
	seen := make(map[string]bool, len(g.nodes))
	comps := make([][]string, 0)
	for _, start := range g.nodes {
		if seen[start] {
			continue
		}
		seen[start] = true
		comp := []string{start}
		for i := 0; i < len(comp); i++ {
			for _, v := range adj[comp[i]] {
				if !seen[v] {
					seen[v] = true
					comp = append(comp, v)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}

// NumberConnectedComponents returns len(ConnectedComponents()).
func (g *Graph) NumberConnectedComponents() int {
	return len(g.ConnectedComponents())
}

// IsConnected reports whether the undirected projection is connected.
func (g *Graph) IsConnected() (bool, error) {
	if len(g.nodes) == 0 {
		return false, ErrEmptyGraph
	}
	return g.NumberConnectedComponents() == 1, nil
}

// StronglyConnectedComponents returns the strongly connected components, single nodes included.
func (g *Graph) StronglyConnectedComponents() [][]string {
	adj := g.simple()
	return tarjan(g.nodes, func(n string) []string { return adj[n] })
}

// IsStronglyConnected reports whether every node reaches every other node.
func (g *Graph) IsStronglyConnected() (bool, error) {
	if len(g.nodes) == 0 {
		return false, ErrEmptyGraph
	}
	return len(g.StronglyConnectedComponents()) == 1, nil
}

// AttractingComponents returns the strongly connected components that no edge leaves.
func (g *Graph) AttractingComponents() [][]string {
	sccs := g.StronglyConnectedComponents()
	member := make(map[string]int, len(g.nodes))
	for i, scc := range sccs {
		for _, n := range scc {
			member[n] = i
		}
	}
	out := make([][]string, 0)
	for i, scc := range sccs {
		attracting := true
		for _, n := range scc {
			for _, s := range g.Successors(n) {
				if member[s] != i {
					attracting = false
					break
				}
			}
			if !attracting {
				break
			}
		}
		if attracting {
			out = append(out, scc)
		}
	}
	return out
}

// NumberAttractingComponents returns len(AttractingComponents()).
func (g *Graph) NumberAttractingComponents() int {
	return len(g.AttractingComponents())
}

// tarjan computes strongly connected components over nodes using an explicit call stack so deep
// graphs cannot overflow the goroutine stack.
func tarjan(nodes []string, succ func(string) []string) [][]string {
	index := 0
	nodeIndex := make(map[string]int, len(nodes))
	lowLink := make(map[string]int, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	var stack []string
	sccs := make([][]string, 0)

	type frame struct {
		node  string
		next  int
		child string
	}

	for _, start := range nodes {
		if _, visited := nodeIndex[start]; visited {
			continue
		}
		calls := []frame{{node: start}}
		nodeIndex[start] = index
		lowLink[start] = index
		index++
		stack = append(stack, start)
		onStack[start] = true

		for len(calls) > 0 {
			f := &calls[len(calls)-1]
			if f.child != "" {
				if lowLink[f.child] < lowLink[f.node] {
					lowLink[f.node] = lowLink[f.child]
				}
				f.child = ""
			}

			pushed := false
			out := succ(f.node)
			for f.next < len(out) {
				w := out[f.next]
				f.next++
				if _, visited := nodeIndex[w]; !visited {
					f.child = w
					nodeIndex[w] = index
					lowLink[w] = index
					index++
					stack = append(stack, w)
					onStack[w] = true
					calls = append(calls, frame{node: w})
					pushed = true
					break
				}
				if onStack[w] && nodeIndex[w] < lowLink[f.node] {
					lowLink[f.node] = nodeIndex[w]
				}
			}
			if pushed {
				continue
			}

			if lowLink[f.node] == nodeIndex[f.node] {
				var scc []string
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == f.node {
						break
					}
				}
				sccs = append(sccs, scc)
			}
			calls = calls[:len(calls)-1]
		}
	}
	return sccs
}
