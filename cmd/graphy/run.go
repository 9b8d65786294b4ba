package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"graphy/internal/builder"
	"graphy/internal/clients/zipkin"
	"graphy/internal/graph"
	"graphy/internal/models"
	"graphy/internal/output"
	"graphy/internal/spantree"
)

// outputFlags select what run and zipkin print or render.
type outputFlags struct {
	printTree  bool
	printGraph bool
	printStats bool
	saveGraph  bool
	showGraph  bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.printTree, "print-span-tree-data", false, "Print the span tree")
	cmd.Flags().BoolVar(&f.printGraph, "print-graph-data", false, "Print the nodes and edges of the graph")
	cmd.Flags().BoolVar(&f.printStats, "print-graph-statistics", false, "Print every graph metric as json")
	cmd.Flags().BoolVar(&f.saveGraph, "save-graph", false, "Save the graph as DOT into output.graph_dir")
	cmd.Flags().BoolVar(&f.showGraph, "show-graph", false, "Write the DOT source of the graph to stdout")
}

func newRunCmd(a *app) *cobra.Command {
	var flags outputFlags

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Build the graph of a span file",
		Long: `Read a json array or line-delimited file of span records, rebuild the span tree
and derive the service graph from the span annotations.

Examples:
  graphy run traces.json --print-graph-data
  graphy run traces.json --print-span-tree-data --save-graph`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFile(cmd.OutOrStdout(), args[0], flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) runFile(w io.Writer, path string, flags outputFlags) error {
	records, err := models.LoadSpansFile(path)
	if err != nil {
		return err
	}
	spans, malformed := models.ParseSpans(records, a.logger)
	tree := spantree.Build(spans, a.logger)

	g, report := builder.FromTree(tree, 0, 0, a.logger)
	g.SetName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

	ts := models.Timestamps(spans)
	a.logger.Info("Span file processed",
		"path", path,
		"records", len(records),
		"malformed", malformed,
		"traces", tree.TraceCount(),
		"spans", tree.SpanCount(),
		"skipped", tree.Skipped(),
		"timestamp_min", ts.Min,
		"timestamp_max", ts.Max,
		"timestamp_avg", ts.Avg,
		"faults", report.Faults,
		"discarded", report.Discarded,
		"nodes", g.NumberOfNodes(),
		"edges", g.NumberOfEdges())

	return a.emit(w, tree, g, flags)
}

func newZipkinCmd(a *app) *cobra.Command {
	var (
		flags outputFlags
		file  string
	)

	cmd := &cobra.Command{
		Use:   "zipkin",
		Short: "Build the graph from a Zipkin backend",
		Long: `Fetch the service dependencies of the configured analysis range from Zipkin and
build the service graph. With --file, the span records of FILE are posted to Zipkin first.

Examples:
  graphy zipkin --print-graph-statistics
  graphy zipkin --file traces.json --print-span-tree-data`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runZipkin(cmd.Context(), cmd.OutOrStdout(), file, flags)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Span file to post to Zipkin before building the graph")
	flags.register(cmd)
	return cmd
}

func (a *app) runZipkin(ctx context.Context, w io.Writer, file string, flags outputFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := zipkin.NewClient(a.cfg.Zipkin.URL, a.cfg.Zipkin.GetTimeoutDuration(), a.logger)

	if file != "" {
		if err := a.postSpanFile(ctx, client, file); err != nil {
			return err
		}
	}

	start, end, err := a.cfg.Analysis.Range(time.Now())
	if err != nil {
		return err
	}
	window := models.Window{Start: start, End: end}

	deps, err := client.GetDependencies(ctx, end, window.Lookback())
	if err != nil {
		return err
	}
	if len(deps) == 0 {
		fmt.Fprintf(w, "No services from %s\n", window)
		return nil
	}
	g := builder.NewFeedBuilder(a.logger).Build(deps, start, end)

	var tree *spantree.Tree
	if flags.printTree {
		if tree, err = a.zipkinTree(ctx, client, window); err != nil {
			return err
		}
	}
	return a.emit(w, tree, g, flags)
}

// postSpanFile uploads the records of a span file as one json array, whatever the file layout.
func (a *app) postSpanFile(ctx context.Context, client *zipkin.Client, path string) error {
	records, err := models.LoadSpansFile(path)
	if err != nil {
		return err
	}
	valid := records[:0]
	for _, r := range records {
		if json.Valid(r) {
			valid = append(valid, r)
		}
	}
	if skipped := len(records) - len(valid); skipped > 0 {
		a.logger.Warn("Skipping malformed span records", "file", path, "skipped", skipped)
	}
	records = valid
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode spans: %w", err)
	}
	if err := client.PostSpans(ctx, data); err != nil {
		return err
	}
	a.logger.Info("Spans posted to zipkin", "file", path, "records", len(records))
	return nil
}

// zipkinTree builds one span tree out of the traces of every service in the window.
func (a *app) zipkinTree(ctx context.Context, client *zipkin.Client, window models.Window) (*spantree.Tree, error) {
	services := a.cfg.Analysis.Services
	if len(services) == 0 {
		var err error
		if services, err = client.GetServices(ctx); err != nil {
			return nil, err
		}
	}

	var spans []*models.Span
	for _, service := range services {
		traces, err := client.GetTraces(ctx, service, window.End, window.Lookback(), a.cfg.Zipkin.TraceLimit)
		if err != nil {
			return nil, err
		}
		if len(traces) >= a.cfg.Zipkin.TraceLimit && a.cfg.Zipkin.TraceLimit > 0 {
			a.logger.Warn("Trace limit reached, results are partial", "service", service, "limit", a.cfg.Zipkin.TraceLimit)
		}
		for _, records := range traces {
			parsed, _ := models.ParseSpans(records, a.logger)
			spans = append(spans, parsed...)
		}
	}
	// The same trace is returned for every service it touches.
	return spantree.Build(dedupe(spans), a.logger), nil
}

func dedupe(spans []*models.Span) []*models.Span {
	seen := make(map[string]bool, len(spans))
	out := spans[:0]
	for _, s := range spans {
		key := s.TraceID + "/" + s.ID
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func (a *app) emit(w io.Writer, tree *spantree.Tree, g *graph.Graph, flags outputFlags) error {
	if flags.printTree && tree != nil {
		if err := tree.Print(w); err != nil {
			return err
		}
	}

	if flags.printGraph {
		fmt.Fprintf(w, "Nodes: %v\n", g.Nodes())
		fmt.Fprintln(w, "Edges:")
		for _, e := range g.Edges() {
			fmt.Fprintf(w, "  %s -> %s (%d)\n", e.From, e.To, e.Weight)
		}
	}

	if flags.printStats {
		data, err := json.MarshalIndent(graph.ComputeStatistics(g, a.logger), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode statistics: %w", err)
		}
		fmt.Fprintln(w, string(data))
	}

	return output.NewDotRenderer(a.cfg.Output.GraphDir, w, a.logger).Draw(g, flags.saveGraph, flags.showGraph)
}
