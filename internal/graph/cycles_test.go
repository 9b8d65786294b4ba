package graph

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// canonical rotates every cycle to start at its smallest node and sorts the list.
func canonical(cycles [][]string) []string {
	out := make([]string, 0, len(cycles))
	for _, c := range cycles {
		min := 0
		for i := range c {
			if c[i] < c[min] {
				min = i
			}
		}
		rotated := append(append([]string(nil), c[min:]...), c[:min]...)
		out = append(out, strings.Join(rotated, ">"))
	}
	sort.Strings(out)
	return out
}

func cyclic() *Graph {
	return build(
		Edge{From: "a", To: "b"},
		Edge{From: "b", To: "c"},
		Edge{From: "c", To: "a"},
		Edge{From: "b", To: "a"},
		Edge{From: "b", To: "a"},
		Edge{From: "d", To: "d"},
		Edge{From: "c", To: "e"},
	)
}

func TestSimpleCycles(t *testing.T) {
	assert.Equal(t, []string{"a>b", "a>b>c", "d"}, canonical(cyclic().SimpleCycles()))
	assert.Empty(t, triangle().SimpleCycles())
}

func TestRecursiveSimpleCycles(t *testing.T) {
	cycles, err := cyclic().RecursiveSimpleCycles(0)
	require.NoError(t, err)
	assert.Equal(t, canonical(cyclic().SimpleCycles()), canonical(cycles))
}

func TestRecursiveSimpleCyclesLimit(t *testing.T) {
	ring := New("", 0, 0)
	for i := 0; i < 20; i++ {
		ring.AddEdge(node(i), node((i+1)%20), 1)
	}

	_, err := ring.RecursiveSimpleCycles(5)
	assert.True(t, errors.Is(err, ErrRecursionLimit))

	cycles, err := ring.RecursiveSimpleCycles(50)
	require.NoError(t, err)
	assert.Len(t, cycles, 1)
	assert.Len(t, cycles[0], 20)
}

func TestFindCycle(t *testing.T) {
	ring := build(Edge{From: "a", To: "b"}, Edge{From: "b", To: "c"}, Edge{From: "c", To: "a"})

	cycle, err := ring.FindCycle()
	require.NoError(t, err)
	assert.Equal(t, []Edge{
		{From: "a", To: "b", Weight: 1},
		{From: "b", To: "c", Weight: 1},
		{From: "c", To: "a", Weight: 1},
	}, cycle)
	assert.False(t, ring.IsDirectedAcyclic())

	loop := build(Edge{From: "x", To: "y"}, Edge{From: "y", To: "y"})
	cycle, err = loop.FindCycle()
	require.NoError(t, err)
	assert.Equal(t, []Edge{{From: "y", To: "y", Weight: 1}}, cycle)

	_, err = triangle().FindCycle()
	assert.ErrorIs(t, err, ErrNoCycle)
	assert.True(t, triangle().IsDirectedAcyclic())
}
