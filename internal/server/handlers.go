package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"graphy/internal/builder"
	"graphy/internal/config"
	"graphy/internal/graph"
	"graphy/internal/models"
	"graphy/internal/orchestrator"
	"graphy/internal/spantree"
)

// maxSpansBody caps the size of a POST /api/spans payload.
const maxSpansBody = 32 << 20

var errBadWindow = errors.New("invalid window")

// Metrics receives the per-service values of every served snapshot and exposes them on
// /metrics.
type Metrics interface {
	orchestrator.MetricSink
	Registry() *prometheus.Registry
}

// Handler holds the server dependencies
type Handler struct {
	cfg     *config.Config
	deps    orchestrator.DependencyFeed
	metrics Metrics
	logger  *slog.Logger

	mu   sync.Mutex
	feed *builder.FeedBuilder
}

// NewHandler creates a new handler. deps and metrics may be nil, which disables the graph
// and metrics endpoints respectively.
func NewHandler(cfg *config.Config, deps orchestrator.DependencyFeed, metrics Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:     cfg,
		deps:    deps,
		metrics: metrics,
		logger:  logger,
		feed:    builder.NewFeedBuilder(logger),
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", h.HandleGraph)
		r.Get("/stats", h.HandleStats)
		r.Post("/spans", h.HandleSpans)
	})
}

// GraphResponse is the json form of a snapshot.
type GraphResponse struct {
	Name   string       `json:"name"`
	Start  int64        `json:"start"`
	End    int64        `json:"end"`
	Nodes  []string     `json:"nodes"`
	Edges  []graph.Edge `json:"edges"`
	NoData bool         `json:"no_data,omitempty"`
}

func newGraphResponse(g *graph.Graph) GraphResponse {
	return GraphResponse{
		Name:  g.Name(),
		Start: g.Start(),
		End:   g.End(),
		Nodes: g.Nodes(),
		Edges: g.Edges(),
	}
}

// SpansResponse describes the tree and annotation graph built from posted spans.
type SpansResponse struct {
	Records     int                      `json:"records"`
	Malformed   int                      `json:"malformed"`
	Traces      int                      `json:"traces"`
	Spans       int                      `json:"spans"`
	Skipped     int                      `json:"skipped"`
	MaxDepth    int                      `json:"max_depth"`
	Timestamps  models.TimestampStats    `json:"timestamps"`
	Annotations builder.AnnotationReport `json:"annotations"`
	Quality     spantree.Metrics         `json:"quality"`
	Graph       GraphResponse            `json:"graph"`
}

// HandleGraph returns the dependency snapshot of a window.
func (h *Handler) HandleGraph(w http.ResponseWriter, r *http.Request) {
	g, status, err := h.snapshot(r)
	if err != nil {
		writeError(w, status, err)
		return
	}
	if g == nil {
		writeJSON(w, http.StatusOK, GraphResponse{Nodes: []string{}, Edges: []graph.Edge{}, NoData: true})
		return
	}
	writeJSON(w, http.StatusOK, newGraphResponse(g))
}

// HandleStats returns the metrics of the dependency snapshot of a window.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	g, status, err := h.snapshot(r)
	if err != nil {
		writeError(w, status, err)
		return
	}
	if g == nil {
		g = graph.New("", 0, 0)
	}
	writeJSON(w, http.StatusOK, graph.ComputeStatistics(g, h.logger))
}

// HandleSpans builds a span tree and an annotation graph from the posted span records.
func (h *Handler) HandleSpans(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	records, err := models.LoadSpans(http.MaxBytesReader(w, r.Body, maxSpansBody))
	if err != nil {
		h.logger.Warn("Failed to read spans", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	spans, malformed := models.ParseSpans(records, h.logger)
	tree := spantree.Build(spans, h.logger)
	g, report := builder.FromTree(tree, 0, 0, h.logger)

	h.logger.Info("Spans processed", "records", len(records), "traces", tree.TraceCount(), "nodes", g.NumberOfNodes())

	writeJSON(w, http.StatusOK, SpansResponse{
		Records:     len(records),
		Malformed:   malformed,
		Traces:      tree.TraceCount(),
		Spans:       tree.SpanCount(),
		Skipped:     tree.Skipped(),
		MaxDepth:    tree.MaxDepth(),
		Timestamps:  models.Timestamps(spans),
		Annotations: report,
		Quality:     spantree.Quality(tree),
		Graph:       newGraphResponse(g),
	})
}

// snapshot builds the graph of the requested window. A nil graph means the feed had no data.
func (h *Handler) snapshot(r *http.Request) (*graph.Graph, int, error) {
	if h.deps == nil {
		return nil, http.StatusServiceUnavailable, errors.New("dependency feed not configured")
	}
	start, end, err := h.window(r)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	deps, err := h.deps.GetDependencies(r.Context(), end, end-start)
	if err != nil {
		h.logger.Error("Failed to get dependencies", "start", start, "end", end, "error", err)
		return nil, http.StatusBadGateway, fmt.Errorf("failed to get dependencies: %w", err)
	}
	if len(deps) == 0 {
		return nil, http.StatusOK, nil
	}

	h.mu.Lock()
	g := h.feed.Build(deps, start, end)
	h.mu.Unlock()

	h.record(r.Context(), g, models.Window{Start: start, End: end})
	return g, http.StatusOK, nil
}

// record exports the degree and call count of every service in g at the window midpoint.
// Sink failures are logged and never fail the request.
func (h *Handler) record(ctx context.Context, g *graph.Graph, w models.Window) {
	if h.metrics == nil {
		return
	}
	out := g.CallCounts("", true)
	for _, m := range []struct {
		prefix string
		values []graph.NodeValue
	}{
		{"degree", g.Degrees(true)},
		{"degree_in", g.InDegrees(true)},
		{"degree_out", g.OutDegrees(true)},
		{"call_count", out},
		{"call_count_in", g.InCallCounts("", true)},
		{"call_count_out", out},
	} {
		values := make([]models.Measurement, 0, len(m.values))
		for _, v := range m.values {
			values = append(values, models.Measurement{Label: v.Node, Value: float64(v.Value)})
		}
		if err := h.metrics.SendNumericMetrics(ctx, m.prefix, values, w.Midpoint()); err != nil {
			h.logger.Warn("Failed to record metrics", "metric", m.prefix, "window", w.String(), "error", err)
		}
	}
}

// window reads start and end from the query, as epoch milliseconds or in the display layout.
// A missing end is now; a missing start is one analysis interval before end.
func (h *Handler) window(r *http.Request) (start, end int64, err error) {
	q := r.URL.Query()

	end = time.Now().UnixMilli()
	if v := q.Get("end"); v != "" {
		if end, err = parseTime(v); err != nil {
			return 0, 0, err
		}
	}

	interval := time.Hour
	if h.cfg != nil {
		interval = h.cfg.Analysis.GetIntervalDuration()
	}
	start = end - interval.Milliseconds()
	if v := q.Get("start"); v != "" {
		if start, err = parseTime(v); err != nil {
			return 0, 0, err
		}
	}

	if end <= start {
		return 0, 0, fmt.Errorf("%w: end must be after start", errBadWindow)
	}
	return start, end, nil
}

func parseTime(v string) (int64, error) {
	ms, err := models.ParseTimestamp(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadWindow, err)
	}
	return ms, nil
}

// HandleHealth returns health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReady returns readiness status
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.deps == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
