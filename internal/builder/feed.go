package builder

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru"

	"graphy/internal/graph"
	"graphy/internal/models"
)

type window struct {
	start, end int64
}

// FeedBuilder builds snapshots from aggregated dependency records and remembers the last
// window it built. It is not safe for concurrent use.
type FeedBuilder struct {
	logger *slog.Logger
	cache  *lru.Cache
}

// NewFeedBuilder creates a FeedBuilder.
func NewFeedBuilder(logger *slog.Logger) *FeedBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	// lru.New only fails for a non-positive size.
	cache, err := lru.New(1)
	if err != nil {
		panic(err)
	}
	return &FeedBuilder{logger: logger, cache: cache}
}

// Build returns a fresh graph with one edge per record, weighted by its call count. A request
// for the same window as the previous call returns the previous graph unchanged.
func (b *FeedBuilder) Build(deps []models.Dependency, start, end int64) *graph.Graph {
	key := window{start: start, end: end}
	if v, ok := b.cache.Get(key); ok {
		b.logger.Debug("Reusing graph for window", "start", start, "end", end)
		return v.(*graph.Graph)
	}

	g := graph.New("", start, end)
	for _, d := range deps {
		if !g.AddEdge(d.Parent, d.Child, d.CallCount) {
			b.logger.Warn("Skipping dependency without service name", "parent", d.Parent, "child", d.Child)
		}
	}

	b.cache.Add(key, g)
	return g
}

// Last returns the most recently built graph, or nil.
func (b *FeedBuilder) Last() *graph.Graph {
	keys := b.cache.Keys()
	if len(keys) == 0 {
		return nil
	}
	v, ok := b.cache.Peek(keys[len(keys)-1])
	if !ok {
		return nil
	}
	return v.(*graph.Graph)
}

// Reset forgets the cached window.
func (b *FeedBuilder) Reset() {
	b.cache.Purge()
}
