package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortestPaths(t *testing.T) {
	g := build(
		Edge{From: "a", To: "b"},
		Edge{From: "b", To: "c"},
		Edge{From: "a", To: "c"},
	)

	paths := g.ShortestPaths()
	assert.Equal(t, []string{"a", "c"}, paths["a"]["c"])
	assert.Equal(t, []string{"a", "b"}, paths["a"]["b"])
	assert.Equal(t, map[string][]string{"c": {"c"}}, paths["c"])
}

func TestFloydWarshall(t *testing.T) {
	g := build(
		Edge{From: "a", To: "b", Weight: 1},
		Edge{From: "b", To: "c", Weight: 1},
		Edge{From: "a", To: "c", Weight: 5},
		Edge{From: "a", To: "c", Weight: 4},
	)

	dist, err := g.FloydWarshall()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 0, "b": 1, "c": 2}, dist["a"])
	assert.Equal(t, map[string]int64{"c": 0}, dist["c"])
}

func TestFloydWarshallNegativeCycle(t *testing.T) {
	g := build(
		Edge{From: "a", To: "b", Weight: -2},
		Edge{From: "b", To: "a", Weight: 1},
	)

	_, err := g.FloydWarshall()
	assert.ErrorIs(t, err, ErrNegativeCycle)
}
