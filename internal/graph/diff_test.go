package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDifferenceWithItself(t *testing.T) {
	g := build(
		Edge{From: "a", To: "b", Weight: 3},
		Edge{From: "a", To: "b", Weight: 1},
		Edge{From: "b", To: "b", Weight: 2},
	)

	assert.Zero(t, Difference(g, g, "").NumberOfEdges())
	assert.Equal(t, Delta{}, Variance(g, g))
}

func TestDifference(t *testing.T) {
	a := New("", 100, 200)
	a.AddEdge("x", "y", 3)
	a.AddEdge("y", "z", 2)
	a.AddEdge("x", "z", 1)
	b := New("", 200, 300)
	b.AddEdge("x", "y", 5)
	b.AddEdge("x", "z", 1)
	b.AddEdge("z", "x", 4)

	diff := Difference(a, b, "")

	assert.Equal(t, "graph_100_300", diff.Name())
	assert.Equal(t, []Edge{
		{From: "x", To: "y", Weight: 2},
		{From: "y", To: "z", Weight: -2},
		{From: "z", To: "x", Weight: 4},
	}, diff.Edges())

	v := Variance(a, b)
	assert.Equal(t, Delta{Gain: 6, Loss: 2}, v)
	assert.Equal(t, int64(4), v.Net())
}

func TestDifferenceNameFromInputNames(t *testing.T) {
	tests := []struct {
		name  string
		a, b  *Graph
		want  string
		start int64
		end   int64
	}{
		{name: "window bounds", a: New("", 100, 200), b: New("", 200, 300), want: "graph_100_300", start: 100, end: 300},
		{name: "stored names", a: New("graph_100_200", 0, 0), b: New("graph_200_300", 0, 0), want: "graph_100_300", start: 100, end: 300},
		{name: "custom names", a: New("before", 5, 6), b: New("after", 7, 8), want: "graph_5_8", start: 5, end: 8},
		{name: "mixed", a: New("graph_10_20", 0, 0), b: New("after", 7, 30), want: "graph_10_30", start: 10, end: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := Difference(tt.a, tt.b, "")
			assert.Equal(t, tt.want, diff.Name())
			assert.Equal(t, tt.start, diff.Start())
			assert.Equal(t, tt.end, diff.End())
		})
	}

	assert.Equal(t, "morph", Difference(New("graph_1_2", 0, 0), New("graph_3_4", 0, 0), "morph").Name())
}

func TestDifferenceParallelEdges(t *testing.T) {
	a := build(Edge{From: "x", To: "y", Weight: 1}, Edge{From: "x", To: "y", Weight: 1})
	b := build(Edge{From: "x", To: "y", Weight: 1})

	assert.Equal(t, []Edge{{From: "x", To: "y", Weight: -1}}, Difference(a, b, "custom").Edges())
	assert.Equal(t, "custom", Difference(a, b, "custom").Name())
}
