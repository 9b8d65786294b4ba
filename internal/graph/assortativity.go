package graph

import "math"

// DegreeAssortativity returns the Pearson correlation between the out-degree of the tail and
// the in-degree of the head over all edges.
func (g *Graph) DegreeAssortativity() (float64, error) {
	if len(g.edges) == 0 {
		return -1, ErrEmptyGraph
	}
	n := float64(len(g.edges))
	var sx, sy, sxx, syy, sxy float64
	for _, e := range g.edges {
		x := float64(g.OutDegree(e.From))
		y := float64(g.InDegree(e.To))
		sx += x
		sy += y
		sxx += x * x
		syy += y * y
		sxy += x * y
	}
	cov := sxy/n - (sx/n)*(sy/n)
	vx := sxx/n - (sx/n)*(sx/n)
	vy := syy/n - (sy/n)*(sy/n)
	if vx <= 1e-12 || vy <= 1e-12 {
		return -1, ErrUndefined
	}
	return cov / math.Sqrt(vx*vy), nil
}

// AverageNeighborDegree returns, per node, the mean out-degree of its successors counted once
// per edge. Nodes without successors get 0.
func (g *Graph) AverageNeighborDegree() map[string]float64 {
	avg := make(map[string]float64, len(g.nodes))
	for _, n := range g.nodes {
		k := g.OutDegree(n)
		if k == 0 {
			avg[n] = 0
			continue
		}
		var sum int
		for _, s := range g.Successors(n) {
			sum += g.OutDegree(s)
		}
		avg[n] = float64(sum) / float64(k)
	}
	return avg
}

// AverageDegreeConnectivity returns, per total degree k, the mean degree of the neighbors of
// nodes with degree k.
func (g *Graph) AverageDegreeConnectivity() map[int]float64 {
	dsum := make(map[int]float64)
	dnorm := make(map[int]float64)
	for _, n := range g.nodes {
		k := g.Degree(n)
		if k == 0 {
			continue
		}
		var s int
		for _, v := range g.Successors(n) {
			s += g.Degree(v)
		}
		for _, u := range g.Predecessors(n) {
			s += g.Degree(u)
		}
		dsum[k] += float64(s)
		dnorm[k] += float64(k)
	}
	out := make(map[int]float64, len(dsum))
	for k, s := range dsum {
		out[k] = s / dnorm[k]
	}
	return out
}

// DegreeMixing counts edges by (out-degree of tail, in-degree of head).
func (g *Graph) DegreeMixing() map[int]map[int]int {
	mix := make(map[int]map[int]int)
	for _, e := range g.edges {
		x, y := g.OutDegree(e.From), g.InDegree(e.To)
		if mix[x] == nil {
			mix[x] = make(map[int]int)
		}
		mix[x][y]++
	}
	return mix
}
