package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"graphy/internal/db"
	"graphy/internal/graph"
)

func links(v int64) *int64 { return &v }

func TestFromEdgeList(t *testing.T) {
	records := []db.EdgeRecord{
		{From: "Services/front", To: "Services/cart", Links: links(4)},
		{From: "cart", To: "db", Links: links(-2)},
		{From: "Services/", To: "Services/cart", Links: links(1)},
		{From: "Services/a", To: "Services/b"},
	}

	g := FromEdgeList(records, "graph_1_2", 1, 2, nil)

	assert.Equal(t, "graph_1_2", g.Name())
	assert.Equal(t, []graph.Edge{
		{From: "front", To: "cart", Weight: 4},
		{From: "cart", To: "db", Weight: -2},
	}, g.Edges())
}
