package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStatisticsIsolatesFailures(t *testing.T) {
	g := build(Edge{From: "a", To: "b"}, Edge{From: "b", To: "c"})

	s := ComputeStatistics(g, nil)

	assert.Equal(t, 3, s.Nodes)
	assert.Equal(t, 2, s.Edges)
	assert.Equal(t, 2, s.Diameter)
	assert.Equal(t, []string{"b"}, s.Center)
	assert.Equal(t, -1, s.Radius)
	assert.Empty(t, s.Periphery)
	assert.Equal(t, -1.0, s.DegreeAssortativity)
	assert.True(t, s.IsDirectedAcyclic)
	assert.Empty(t, s.FindCycle)
	assert.Equal(t, 1, s.NumberConnectedComponents)
	assert.Equal(t, 1, s.NumberAttractingComponents)

	assert.Contains(t, s.Errors, "radius")
	assert.Contains(t, s.Errors, "periphery")
	assert.Contains(t, s.Errors, "degree_assortativity")
	assert.Contains(t, s.Errors, "find_cycle")
	assert.NotContains(t, s.Errors, "diameter")
}

func TestComputeStatisticsEmptyGraph(t *testing.T) {
	s := ComputeStatistics(New("", 0, 0), nil)

	assert.Equal(t, -1, s.Diameter)
	assert.Equal(t, -1, s.Radius)
	assert.Empty(t, s.Center)
	assert.Equal(t, 0, s.NumberConnectedComponents)
	assert.Contains(t, s.Errors, "diameter")
}

func TestIsolateRecoversPanic(t *testing.T) {
	err := isolate(func() error {
		var m map[string]int
		m["boom"] = 1
		return nil
	})
	assert.Error(t, err)

	want := errors.New("plain")
	assert.Equal(t, want, isolate(func() error { return want }))
}
