package graph

// ShortestPaths returns, for every source node, one shortest directed path (by hop count) to
// every reachable node. Paths include both ends; a node reaches itself with a one-node path.
func (g *Graph) ShortestPaths() map[string]map[string][]string {
	adj := g.simple()
	all := make(map[string]map[string][]string, len(g.nodes))
	for _, source := range g.nodes {
		paths := map[string][]string{source: {source}}
		queue := []string{source}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, w := range adj[v] {
				if _, ok := paths[w]; ok {
					continue
				}
				p := make([]string, len(paths[v]), len(paths[v])+1)
				copy(p, paths[v])
				paths[w] = append(p, w)
				queue = append(queue, w)
			}
		}
		all[source] = paths
	}
	return all
}

// FloydWarshall returns weighted shortest path lengths between every pair of connected nodes.
// Parallel edges contribute their lightest weight. Unreachable pairs are omitted.
func (g *Graph) FloydWarshall() (map[string]map[string]int64, error) {
	n := len(g.nodes)
	dist := make([][]int64, n)
	reach := make([][]bool, n)
	for i := range dist {
		dist[i] = make([]int64, n)
		reach[i] = make([]bool, n)
		reach[i][i] = true
	}
	for _, e := range g.edges {
		u, v := g.index[e.From], g.index[e.To]
		if !reach[u][v] || e.Weight < dist[u][v] {
			dist[u][v] = e.Weight
			reach[u][v] = true
		}
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if !reach[i][k] {
				continue
			}
			for j := 0; j < n; j++ {
				if !reach[k][j] {
					continue
				}
				if d := dist[i][k] + dist[k][j]; !reach[i][j] || d < dist[i][j] {
					dist[i][j] = d
					reach[i][j] = true
				}
			}
		}
	}

	out := make(map[string]map[string]int64, n)
	for i, u := range g.nodes {
		if dist[i][i] < 0 {
			return nil, ErrNegativeCycle
		}
		row := make(map[string]int64)
		for j, v := range g.nodes {
			if reach[i][j] {
				row[v] = dist[i][j]
			}
		}
		out[u] = row
	}
	return out, nil
}
