// Package mcp exposes the service graph to Model Context Protocol clients.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"graphy/internal/builder"
	"graphy/internal/config"
	"graphy/internal/db"
	"graphy/internal/graph"
	"graphy/internal/models"
	"graphy/internal/orchestrator"
)

// SnapshotStore lists persisted graph snapshots.
type SnapshotStore interface {
	ListGraphs(ctx context.Context, collection string) ([]db.GraphInfo, error)
	GetGraphEdges(ctx context.Context, collection, name string) ([]db.EdgeRecord, error)
}

// Server binds graph queries to MCP tools. Each call builds its own snapshot.
type Server struct {
	cfg    *config.Config
	deps   orchestrator.DependencyFeed
	store  SnapshotStore
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new MCP server wrapper. store may be nil, which disables the snapshot tools.
func New(cfg *config.Config, deps orchestrator.DependencyFeed, store SnapshotStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		deps:   deps,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterTools registers the graph tools with the MCP server
func (s *Server) RegisterTools(mcpServer *server.MCPServer) {
	window := []mcp.ToolOption{
		mcp.WithString("start", mcp.Description("Window start, epoch ms or DD/MM/YYYY HH:MM:SS (default: one interval before end)")),
		mcp.WithString("end", mcp.Description("Window end, epoch ms or DD/MM/YYYY HH:MM:SS (default: now)")),
	}

	graphTool := mcp.NewTool("get_service_graph",
		append([]mcp.ToolOption{mcp.WithDescription("Returns the services and weighted call edges of a time window.")}, window...)...,
	)
	mcpServer.AddTool(graphTool, s.HandleGetServiceGraph)

	statsTool := mcp.NewTool("get_graph_statistics",
		append([]mcp.ToolOption{mcp.WithDescription("Computes degree, component, cycle and distance metrics of the service graph of a time window.")}, window...)...,
	)
	mcpServer.AddTool(statsTool, s.HandleGetGraphStatistics)

	neighboursTool := mcp.NewTool("get_service_neighbours",
		append([]mcp.ToolOption{
			mcp.WithDescription("Lists the services a service calls and the services that call it."),
			mcp.WithString("service_name", mcp.Required(), mcp.Description("Name of the service")),
		}, window...)...,
	)
	mcpServer.AddTool(neighboursTool, s.HandleGetServiceNeighbours)

	if s.store != nil {
		snapshotsTool := mcp.NewTool("list_graph_snapshots",
			mcp.WithDescription("Lists the stored graph snapshots and, with name, the edges of one of them."),
			mcp.WithString("collection", mcp.Description("graphs or graph_diffs (default: graphs)")),
			mcp.WithString("name", mcp.Description("Snapshot name, e.g. graph_1700000000000_1700003600000")),
		)
		mcpServer.AddTool(snapshotsTool, s.HandleListSnapshots)
	}
}

// HandleGetServiceGraph returns nodes and edges of a window.
func (s *Server) HandleGetServiceGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, w, err := s.snapshot(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if g == nil {
		return mcp.NewToolResultText(fmt.Sprintf("No services from %s", w)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Service graph from %s (%d services, %d edges):\n", w, g.NumberOfNodes(), g.NumberOfEdges()))
	for _, e := range g.Edges() {
		sb.WriteString(fmt.Sprintf("- %s -> %s: %d calls\n", e.From, e.To, e.Weight))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleGetGraphStatistics returns every graph metric of a window as json.
func (s *Server) HandleGetGraphStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, w, err := s.snapshot(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if g == nil {
		return mcp.NewToolResultText(fmt.Sprintf("No services from %s", w)), nil
	}

	data, err := json.MarshalIndent(graph.ComputeStatistics(g, s.logger), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode statistics: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// HandleGetServiceNeighbours reports the callees and callers of one service.
func (s *Server) HandleGetServiceNeighbours(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	service, err := request.RequireString("service_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, w, err := s.snapshot(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if g == nil || !g.HasNode(service) {
		return mcp.NewToolResultText(fmt.Sprintf("No calls from or to %s from %s", service, w)), nil
	}

	report := fmt.Sprintf("Neighbours of %s from %s:\n- calls: %s\n- called by: %s\n",
		service, w, list(g.Successors(service)), list(g.Predecessors(service)))
	return mcp.NewToolResultText(report), nil
}

// HandleListSnapshots lists stored snapshots, or the edges of the named one.
func (s *Server) HandleListSnapshots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection := request.GetString("collection", s.cfg.Analysis.GraphsCollection)
	if collection == "" {
		collection = "graphs"
	}

	if name := request.GetString("name", ""); name != "" {
		records, err := s.store.GetGraphEdges(ctx, collection, name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		start, end, _ := graph.ParseSnapshotName(name)
		g := builder.FromEdgeList(records, name, start, end, s.logger)

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%s/%s (%d services, %d edges):\n", collection, name, g.NumberOfNodes(), g.NumberOfEdges()))
		for _, e := range g.Edges() {
			sb.WriteString(fmt.Sprintf("- %s -> %s: %d\n", e.From, e.To, e.Weight))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}

	infos, err := s.store.ListGraphs(ctx, collection)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(infos) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No snapshots stored in %s.", collection)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Snapshots in %s:\n", collection))
	for _, info := range infos {
		w := models.Window{Start: info.Start, End: info.End}
		sb.WriteString(fmt.Sprintf("- %s (%s, %d edges)\n", info.Name, w, info.Edges))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// snapshot builds the dependency graph of the requested window. A nil graph means no data.
func (s *Server) snapshot(ctx context.Context, request mcp.CallToolRequest) (*graph.Graph, models.Window, error) {
	w, err := s.window(request)
	if err != nil {
		return nil, w, err
	}
	deps, err := s.deps.GetDependencies(ctx, w.End, w.Lookback())
	if err != nil {
		s.logger.Error("Failed to get dependencies", "window", w.String(), "error", err)
		return nil, w, fmt.Errorf("failed to get dependencies: %w", err)
	}
	if len(deps) == 0 {
		return nil, w, nil
	}
	return builder.NewFeedBuilder(s.logger).Build(deps, w.Start, w.End), w, nil
}

func (s *Server) window(request mcp.CallToolRequest) (models.Window, error) {
	var w models.Window
	var err error

	w.End = s.now().UnixMilli()
	if v := request.GetString("end", ""); v != "" {
		if w.End, err = models.ParseTimestamp(v); err != nil {
			return w, err
		}
	}
	w.Start = w.End - s.cfg.Analysis.GetIntervalDuration().Milliseconds()
	if v := request.GetString("start", ""); v != "" {
		if w.Start, err = models.ParseTimestamp(v); err != nil {
			return w, err
		}
	}
	if w.End <= w.Start {
		return w, fmt.Errorf("window is empty: %s", w)
	}
	return w, nil
}

func list(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
