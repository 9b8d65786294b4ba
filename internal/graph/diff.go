package graph

// Difference compares two snapshots by edge weight. Edges only in a are emitted with a negated
// weight, edges in both with a different weight carry wb - wa, and edges only in b keep their
// weight. Edges are matched on (from, to), each edge of b at most once. An empty name defaults to
// graph_{start}_{end}, taking start from a's name and end from b's name, or from their window
// bounds when a name carries no graph_{start}_{end} suffix.
func Difference(a, b *Graph, name string) *Graph {
	start, end := a.Start(), b.End()
	if s, _, ok := ParseSnapshotName(a.Name()); ok {
		start = s
	}
	if _, e, ok := ParseSnapshotName(b.Name()); ok {
		end = e
	}
	if name == "" {
		name = SnapshotName(start, end)
	}
	diff := New(name, start, end)

	remaining := b.Edges()
	used := make([]bool, len(remaining))
	match := func(e Edge) int {
		for i, r := range remaining {
			if !used[i] && r.From == e.From && r.To == e.To {
				return i
			}
		}
		return -1
	}

	for _, e := range a.edges {
		i := match(e)
		if i < 0 {
			diff.AddEdge(e.From, e.To, -e.Weight)
			continue
		}
		used[i] = true
		if w := remaining[i].Weight; w != e.Weight {
			diff.AddEdge(e.From, e.To, w-e.Weight)
		}
	}
	for i, r := range remaining {
		if !used[i] {
			diff.AddEdge(r.From, r.To, r.Weight)
		}
	}
	return diff
}

// Delta is the weight gained and lost between two snapshots.
type Delta struct {
	Gain int64 `json:"gain"`
	Loss int64 `json:"loss"`
}

// Net returns Gain - Loss.
func (d Delta) Net() int64 {
	return d.Gain - d.Loss
}

// Variance sums the positive weights of Difference(a, b) into Gain and the absolute negative
// weights into Loss.
func Variance(a, b *Graph) Delta {
	return DeltaOf(Difference(a, b, ""))
}

// DeltaOf sums the gained and lost weight of a difference graph.
func DeltaOf(diff *Graph) Delta {
	var d Delta
	for _, e := range diff.edges {
		switch {
		case e.Weight > 0:
			d.Gain += e.Weight
		case e.Weight < 0:
			d.Loss -= e.Weight
		}
	}
	return d
}
