package builder

import (
	"log/slog"
	"strings"

	"graphy/internal/db"
	"graphy/internal/graph"
)

// FromEdgeList rebuilds a graph from persisted edge records. "collection/key" identifiers resolve
// to the key; records without a resolvable endpoint or weight are skipped.
func FromEdgeList(records []db.EdgeRecord, name string, start, end int64, logger *slog.Logger) *graph.Graph {
	if logger == nil {
		logger = slog.Default()
	}
	g := graph.New(name, start, end)
	for _, r := range records {
		from, to := resolveKey(r.From), resolveKey(r.To)
		if from == "" || to == "" || r.Links == nil {
			logger.Warn("Skipping incomplete edge record", "from", r.From, "to", r.To)
			continue
		}
		g.AddEdge(from, to, *r.Links)
	}
	return g
}

func resolveKey(id string) string {
	return id[strings.LastIndex(id, "/")+1:]
}
