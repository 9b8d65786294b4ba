package graph

import "sort"

// NodeValue pairs a node with an aggregate.
type NodeValue struct {
	Node  string `json:"node"`
	Value int64  `json:"value"`
}

// Neighborhood lists the successors of a node, one entry per edge.
type Neighborhood struct {
	Node      string   `json:"node"`
	Neighbors []string `json:"neighbors"`
}

// Degrees returns the total degree of every node. With sorted set the result is ordered by
// degree, highest first, ties kept in node insertion order.
func (g *Graph) Degrees(sorted bool) []NodeValue {
	return g.perNode(sorted, func(n string) int64 { return int64(g.Degree(n)) })
}

// InDegrees returns the in-degree of every node.
func (g *Graph) InDegrees(sorted bool) []NodeValue {
	return g.perNode(sorted, func(n string) int64 { return int64(g.InDegree(n)) })
}

// OutDegrees returns the out-degree of every node.
func (g *Graph) OutDegrees(sorted bool) []NodeValue {
	return g.perNode(sorted, func(n string) int64 { return int64(g.OutDegree(n)) })
}

func (g *Graph) perNode(sorted bool, value func(string) int64) []NodeValue {
	out := make([]NodeValue, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, NodeValue{Node: n, Value: value(n)})
	}
	if sorted {
		sortDescending(out)
	}
	return out
}

// CallCounts sums the weights of outgoing edges per caller. An empty service selects every
// caller; otherwise only that service is reported, if it calls anything.
func (g *Graph) CallCounts(service string, sorted bool) []NodeValue {
	return g.sumWeights(service, sorted, func(e Edge) string { return e.From })
}

// InCallCounts sums the weights of incoming edges per callee.
func (g *Graph) InCallCounts(service string, sorted bool) []NodeValue {
	return g.sumWeights(service, sorted, func(e Edge) string { return e.To })
}

func (g *Graph) sumWeights(service string, sorted bool, key func(Edge) string) []NodeValue {
	totals := make(map[string]int64)
	var order []string
	for _, e := range g.edges {
		k := key(e)
		if service != "" && k != service {
			continue
		}
		if _, ok := totals[k]; !ok {
			order = append(order, k)
		}
		totals[k] += e.Weight
	}
	out := make([]NodeValue, 0, len(order))
	for _, k := range order {
		out = append(out, NodeValue{Node: k, Value: totals[k]})
	}
	if sorted {
		sortDescending(out)
	}
	return out
}

// Neighbors returns the successors of every node, or of service alone when it is set.
func (g *Graph) Neighbors(service string) []Neighborhood {
	if service != "" {
		if !g.HasNode(service) {
			return []Neighborhood{}
		}
		return []Neighborhood{{Node: service, Neighbors: g.Successors(service)}}
	}
	out := make([]Neighborhood, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, Neighborhood{Node: n, Neighbors: g.Successors(n)})
	}
	return out
}

func sortDescending(values []NodeValue) {
	sort.SliceStable(values, func(i, j int) bool {
		return values[i].Value > values[j].Value
	})
}
