package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphy/internal/graph"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "graphy.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertGraphIsIdempotent(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()
	edges := []graph.Edge{
		{From: "front", To: "cart", Weight: 12},
		{From: "cart", To: "db", Weight: 40},
	}

	require.NoError(t, store.InsertGraph(ctx, "graphs", 0, 3600000, edges))
	require.NoError(t, store.InsertGraph(ctx, "graphs", 0, 3600000, edges))

	records, err := store.GetGraphEdges(ctx, "graphs", "graph_0_3600000")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Services/front", records[0].From)
	assert.Equal(t, "Services/cart", records[0].To)
	assert.Equal(t, int64(12), *records[0].Links)

	graphs, err := store.ListGraphs(ctx, "graphs")
	require.NoError(t, err)
	require.Len(t, graphs, 1)
	assert.Equal(t, SnapshotID("graphs", "graph_0_3600000"), graphs[0].ID)
	assert.Equal(t, 2, graphs[0].Edges)

	services, err := store.Services(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cart", "db", "front"}, services)
}

func TestInsertGraphReplacesEdges(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.InsertGraph(ctx, "graphs", 0, 10, []graph.Edge{{From: "a", To: "b", Weight: 1}}))
	require.NoError(t, store.InsertGraph(ctx, "graphs", 0, 10, []graph.Edge{{From: "a", To: "c", Weight: -3}}))

	records, err := store.GetGraphEdges(ctx, "graphs", "graph_0_10")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Services/c", records[0].To)
	assert.Equal(t, int64(-3), *records[0].Links)
}

func TestCollectionsAreSeparate(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.InsertGraph(ctx, "graphs", 0, 10, []graph.Edge{{From: "a", To: "b", Weight: 1}}))
	require.NoError(t, store.InsertGraph(ctx, "graph_diffs", 0, 10, nil))

	assert.NotEqual(t, SnapshotID("graphs", "graph_0_10"), SnapshotID("graph_diffs", "graph_0_10"))

	records, err := store.GetGraphEdges(ctx, "graph_diffs", "graph_0_10")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLatestGraph(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	_, err := store.LatestGraph(ctx, "graphs", 100)
	assert.ErrorIs(t, err, ErrGraphNotFound)

	require.NoError(t, store.InsertGraph(ctx, "graphs", 0, 10, []graph.Edge{{From: "a", To: "b", Weight: 1}}))
	require.NoError(t, store.InsertGraph(ctx, "graphs", 10, 20, nil))
	require.NoError(t, store.InsertGraph(ctx, "graphs", 20, 30, nil))

	info, err := store.LatestGraph(ctx, "graphs", 20)
	require.NoError(t, err)
	assert.Equal(t, "graph_10_20", info.Name)
	assert.Equal(t, int64(10), info.Start)
	assert.Equal(t, 0, info.Edges)
}
