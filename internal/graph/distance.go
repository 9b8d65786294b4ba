package graph

// Eccentricities returns, for every node, the greatest hop distance to any other node of the
// undirected projection.
func (g *Graph) Eccentricities() (map[string]int, error) {
	if len(g.nodes) == 0 {
		return nil, ErrEmptyGraph
	}
	adj := g.undirected()
	ecc := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		dist := bfs(n, func(v string) []string { return adj[v] })
		if len(dist) != len(g.nodes) {
			return nil, ErrNotConnected
		}
		max := 0
		for _, d := range dist {
			if d > max {
				max = d
			}
		}
		ecc[n] = max
	}
	return ecc, nil
}

// Diameter returns the maximum eccentricity of the undirected projection.
func (g *Graph) Diameter() (int, error) {
	ecc, err := g.Eccentricities()
	if err != nil {
		return -1, err
	}
	d := 0
	for _, e := range ecc {
		if e > d {
			d = e
		}
	}
	return d, nil
}

// Center returns the nodes whose eccentricity equals the radius of the undirected projection.
func (g *Graph) Center() ([]string, error) {
	ecc, err := g.Eccentricities()
	if err != nil {
		return []string{}, err
	}
	return g.withEccentricity(ecc, minValue(ecc)), nil
}

// Radius returns the minimum eccentricity. The directed graph must be strongly connected.
func (g *Graph) Radius() (int, error) {
	ecc, err := g.stronglyConnectedEccentricities()
	if err != nil {
		return -1, err
	}
	return minValue(ecc), nil
}

// Periphery returns the nodes whose eccentricity equals the diameter. The directed graph must be
// strongly connected.
func (g *Graph) Periphery() ([]string, error) {
	ecc, err := g.stronglyConnectedEccentricities()
	if err != nil {
		return []string{}, err
	}
	max := 0
	for _, e := range ecc {
		if e > max {
			max = e
		}
	}
	return g.withEccentricity(ecc, max), nil
}

func (g *Graph) stronglyConnectedEccentricities() (map[string]int, error) {
	ok, err := g.IsStronglyConnected()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotStronglyConnected
	}
	return g.Eccentricities()
}

func (g *Graph) withEccentricity(ecc map[string]int, value int) []string {
	out := make([]string, 0)
	for _, n := range g.nodes {
		if ecc[n] == value {
			out = append(out, n)
		}
	}
	return out
}

func minValue(m map[string]int) int {
	first := true
	min := 0
	for _, v := range m {
		if first || v < min {
			min = v
			first = false
		}
	}
	return min
}

// bfs returns hop distances from source to every reachable node.
func bfs(source string, succ func(string) []string) map[string]int {
	dist := map[string]int{source: 0}
	queue := []string{source}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range succ(v) {
			if _, ok := dist[w]; !ok {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
		}
	}
	return dist
}
