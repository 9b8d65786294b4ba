// Package orchestrator runs the per-window analyses of the service graph against the tracing
// backend, the graph store and the metric sink.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"graphy/internal/builder"
	"graphy/internal/db"
	"graphy/internal/graph"
	"graphy/internal/models"
	"graphy/internal/remediation"
	"graphy/internal/spantree"
)

// DependencyFeed serves aggregated caller/callee links. A nil result means no data.
type DependencyFeed interface {
	GetDependencies(ctx context.Context, endTs, lookback int64) ([]models.Dependency, error)
}

// TraceFeed serves raw traces of a service.
type TraceFeed interface {
	GetTraces(ctx context.Context, service string, endTs, lookback int64, limit int) ([][]json.RawMessage, error)
	GetServices(ctx context.Context) ([]string, error)
}

// GraphStore persists graph snapshots.
type GraphStore interface {
	InsertGraph(ctx context.Context, collection string, start, end int64, edges []graph.Edge) error
	GetGraphEdges(ctx context.Context, collection, name string) ([]db.EdgeRecord, error)
	LatestGraph(ctx context.Context, collection string, before int64) (*db.GraphInfo, error)
}

// MetricSink receives numeric window results.
type MetricSink interface {
	SendNumericMetric(ctx context.Context, name string, value float64, timestampMs int64) error
	SendNumericMetrics(ctx context.Context, prefix string, values []models.Measurement, timestampMs int64) error
}

// Notifier announces morphology changes.
type Notifier interface {
	NotifyMorphology(ctx context.Context, report models.MorphologyReport) error
}

// Options tunes an Orchestrator.
type Options struct {
	GraphsCollection string
	DiffsCollection  string
	TraceLimit       int
	Services         []string

	// DropRatio is the share of lost calls that makes a morphology report suggest a traffic
	// check. Zero uses remediation.DefaultDropRatio.
	DropRatio float64
}

// Report is the user-visible outcome of one analysis.
type Report struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	NoData bool   `json:"no_data,omitempty"`
}

// Orchestrator coordinates the windowed analyses. It keeps the last snapshot to diff the next
// window against and is not safe for concurrent use.
type Orchestrator struct {
	deps     DependencyFeed
	traces   TraceFeed
	store    GraphStore
	sink     MetricSink
	notifier Notifier
	opts     Options
	logger   *slog.Logger

	feed     *builder.FeedBuilder
	rules    *remediation.Engine
	previous *graph.Graph
}

// New creates a new orchestrator. notifier may be nil.
func New(deps DependencyFeed, traces TraceFeed, store GraphStore, sink MetricSink, notifier Notifier, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.GraphsCollection == "" {
		opts.GraphsCollection = "graphs"
	}
	if opts.DiffsCollection == "" {
		opts.DiffsCollection = "graph_diffs"
	}
	return &Orchestrator{
		deps:     deps,
		traces:   traces,
		store:    store,
		sink:     sink,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		feed:     builder.NewFeedBuilder(logger),
		rules:    remediation.NewEngine(opts.DropRatio),
	}
}

// Snapshot builds the dependency graph of a window. ok is false when the feed has no data.
func (o *Orchestrator) Snapshot(ctx context.Context, w models.Window) (g *graph.Graph, ok bool, err error) {
	deps, err := o.deps.GetDependencies(ctx, w.End, w.Lookback())
	if err != nil {
		return nil, false, fmt.Errorf("failed to get dependencies for %s: %w", w, err)
	}
	if len(deps) == 0 {
		o.logger.Info("No dependencies in window", "window", w.String())
		return nil, false, nil
	}
	return o.feed.Build(deps, w.Start, w.End), true, nil
}

func noServices(w models.Window, what string) Report {
	return Report{
		Title:  fmt.Sprintf("No services from %s", w),
		Body:   fmt.Sprintf("Can't calculate %s", what),
		NoData: true,
	}
}

func noTraces(w models.Window, service, what string) Report {
	return Report{
		Title:  fmt.Sprintf("No traces found from %s for service %s", w, service),
		Body:   fmt.Sprintf("Can't calculate %s", what),
		NoData: true,
	}
}

func measurements(values []graph.NodeValue) []models.Measurement {
	out := make([]models.Measurement, 0, len(values))
	for _, v := range values {
		out = append(out, models.Measurement{Label: v.Node, Value: float64(v.Value)})
	}
	return out
}

// ServiceNeighbours lists the successors of every service in the window.
func (o *Orchestrator) ServiceNeighbours(ctx context.Context, w models.Window) (Report, error) {
	g, ok, err := o.Snapshot(ctx, w)
	if err != nil || !ok {
		return noServices(w, "service neighbours"), err
	}
	body := ""
	for _, n := range g.Neighbors("") {
		body += fmt.Sprintf("%s: %v\n", n.Node, n.Neighbors)
	}
	return Report{Title: fmt.Sprintf("All service neighbors from %s", w), Body: body}, nil
}

// ServiceDegree sends degree, degree_in and degree_out for every service and reports the most
// connected one.
func (o *Orchestrator) ServiceDegree(ctx context.Context, w models.Window) (Report, error) {
	g, ok, err := o.Snapshot(ctx, w)
	if err != nil || !ok {
		return noServices(w, "service degree"), err
	}
	degrees := g.Degrees(true)
	if len(degrees) == 0 {
		return noServices(w, "service degree"), nil
	}
	ts := w.Midpoint()
	for _, m := range []struct {
		prefix string
		values []graph.NodeValue
	}{
		{"degree", degrees},
		{"degree_in", g.InDegrees(true)},
		{"degree_out", g.OutDegrees(true)},
	} {
		if err := o.sink.SendNumericMetrics(ctx, m.prefix, measurements(m.values), ts); err != nil {
			return Report{}, fmt.Errorf("failed to send %s metrics: %w", m.prefix, err)
		}
	}
	return Report{
		Title: fmt.Sprintf("Most popular service from %s (Degrees)", w),
		Body:  fmt.Sprintf("%s: %d", degrees[0].Node, degrees[0].Value),
	}, nil
}

// ServiceCallCount sends call_count, call_count_in and call_count_out for every service and
// reports the busiest caller.
func (o *Orchestrator) ServiceCallCount(ctx context.Context, w models.Window) (Report, error) {
	g, ok, err := o.Snapshot(ctx, w)
	if err != nil || !ok {
		return noServices(w, "service call count"), err
	}
	out := g.CallCounts("", true)
	ts := w.Midpoint()
	for _, m := range []struct {
		prefix string
		values []graph.NodeValue
	}{
		{"call_count", out},
		{"call_count_in", g.InCallCounts("", true)},
		{"call_count_out", out},
	} {
		if err := o.sink.SendNumericMetrics(ctx, m.prefix, measurements(m.values), ts); err != nil {
			return Report{}, fmt.Errorf("failed to send %s metrics: %w", m.prefix, err)
		}
	}
	if len(out) == 0 {
		return Report{Title: fmt.Sprintf("Most popular service from %s (Call Count)", w), Body: "no calls"}, nil
	}
	return Report{
		Title: fmt.Sprintf("Most popular service from %s (Call Count)", w),
		Body:  fmt.Sprintf("%s: %d", out[0].Node, out[0].Value),
	}, nil
}

// Morphology persists the window snapshot, diffs it against the previous one and sends the
// variance metrics. Without a previous snapshot in memory the latest stored one that ends at
// or before the window start is used.
func (o *Orchestrator) Morphology(ctx context.Context, w models.Window) (Report, error) {
	current, ok, err := o.Snapshot(ctx, w)
	if err != nil || !ok {
		if err == nil {
			return Report{
				Title:  fmt.Sprintf("No system graph from %s", w),
				Body:   "Can't calculate service morphology",
				NoData: true,
			}, nil
		}
		return Report{}, err
	}

	if err := o.store.InsertGraph(ctx, o.opts.GraphsCollection, w.Start, w.End, current.Edges()); err != nil {
		return Report{}, fmt.Errorf("failed to store graph: %w", err)
	}

	previous := o.previous
	if previous == nil {
		if previous, err = o.loadPrevious(ctx, w.Start); err != nil {
			return Report{}, err
		}
	}
	o.previous = current.Copy()

	if previous == nil {
		return Report{Title: "NO PREVIOUS GRAPH!", Body: fmt.Sprintf("Stored %s", current.Name())}, nil
	}

	diff := graph.Difference(previous, current, "")
	if err := o.store.InsertGraph(ctx, o.opts.DiffsCollection, w.Start, w.End, diff.Edges()); err != nil {
		return Report{}, fmt.Errorf("failed to store graph diff: %w", err)
	}

	delta := graph.DeltaOf(diff)
	ts := w.Midpoint()
	for _, m := range []struct {
		name  string
		value int64
	}{
		{"graph_gain_variance", delta.Gain},
		{"graph_loss_variance", delta.Loss},
		{"graph_variance", delta.Net()},
	} {
		if err := o.sink.SendNumericMetric(ctx, m.name, float64(m.value), ts); err != nil {
			return Report{}, fmt.Errorf("failed to send %s: %w", m.name, err)
		}
	}

	report := models.MorphologyReport{
		Window:   w,
		Previous: summarize(previous),
		Current:  summarize(current),
		Diff:     summarize(diff),
		Gain:     delta.Gain,
		Loss:     delta.Loss,
		Variance: delta.Net(),
	}
	report.Suggestions = o.rules.GetSuggestions(report)
	if o.notifier != nil {
		if err := o.notifier.NotifyMorphology(ctx, report); err != nil {
			o.logger.Warn("Failed to notify morphology", "window", w.String(), "error", err)
		}
	}

	body := fmt.Sprintf("previous: %d nodes, %d edges\ncurrent: %d nodes, %d edges\ndiff: %d nodes, %d edges\ngain: %d loss: %d variance: %d",
		len(report.Previous.Nodes), report.Previous.Edges,
		len(report.Current.Nodes), report.Current.Edges,
		len(report.Diff.Nodes), report.Diff.Edges,
		delta.Gain, delta.Loss, delta.Net())
	for _, sg := range report.Suggestions {
		body += fmt.Sprintf("\n- %s: %s", sg.Title, sg.Description)
	}
	return Report{Title: fmt.Sprintf("System Morphology from %s", w), Body: body}, nil
}

func (o *Orchestrator) loadPrevious(ctx context.Context, before int64) (*graph.Graph, error) {
	info, err := o.store.LatestGraph(ctx, o.opts.GraphsCollection, before)
	if errors.Is(err, db.ErrGraphNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find previous graph: %w", err)
	}
	records, err := o.store.GetGraphEdges(ctx, o.opts.GraphsCollection, info.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous graph: %w", err)
	}
	return builder.FromEdgeList(records, info.Name, info.Start, info.End, o.logger), nil
}

func summarize(g *graph.Graph) models.GraphSummary {
	var calls int64
	for _, e := range g.Edges() {
		calls += e.Weight
	}
	return models.GraphSummary{
		Name:   g.Name(),
		Nodes:  g.Nodes(),
		Edges:  g.NumberOfEdges(),
		Calls:  calls,
		Cyclic: !g.IsDirectedAcyclic(),
	}
}

// serviceTraces fetches and parses the traces of one service in the window.
func (o *Orchestrator) serviceTraces(ctx context.Context, service string, w models.Window) ([][]*models.Span, error) {
	raw, err := o.traces.GetTraces(ctx, service, w.End, w.Lookback(), o.opts.TraceLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get traces for %s: %w", service, err)
	}
	traces := make([][]*models.Span, 0, len(raw))
	for _, records := range raw {
		spans, skipped := models.ParseSpans(records, o.logger)
		if skipped > 0 {
			o.logger.Debug("Skipped malformed spans", "service", service, "skipped", skipped)
		}
		if len(spans) > 0 {
			traces = append(traces, spans)
		}
	}
	return traces, nil
}

func flatten(traces [][]*models.Span) []*models.Span {
	var spans []*models.Span
	for _, t := range traces {
		spans = append(spans, t...)
	}
	return spans
}

// ServiceStatusCodes sends status_code.<service> with the share of each status class.
func (o *Orchestrator) ServiceStatusCodes(ctx context.Context, service string, w models.Window) (Report, error) {
	traces, err := o.serviceTraces(ctx, service, w)
	if err != nil {
		return Report{}, err
	}
	if len(traces) == 0 {
		return noTraces(w, service, "service status codes"), nil
	}
	return o.statusCodes(ctx, service, w, traces)
}

func (o *Orchestrator) statusCodes(ctx context.Context, service string, w models.Window, traces [][]*models.Span) (Report, error) {
	counts := models.StatusCodes(traces)
	percentages := models.StatusCodePercentages(counts)

	values := make([]models.Measurement, 0, len(percentages))
	for _, bucket := range sortedKeys(percentages) {
		values = append(values, models.Measurement{Label: bucket, Value: percentages[bucket]})
	}
	if err := o.sink.SendNumericMetrics(ctx, "status_code."+service, values, w.Midpoint()); err != nil {
		return Report{}, fmt.Errorf("failed to send status codes for %s: %w", service, err)
	}

	body := fmt.Sprintf("service: %s\nstatus_codes: %v\nstatus_codes_percentage: %v", service, counts, percentages)
	return Report{Title: fmt.Sprintf("Status codes from %s for service %s", w, service), Body: body}, nil
}

// ResponseTime sends response_time_avg.<service>, the mean root span duration of the window.
// Nothing is sent when no root span carries a duration.
func (o *Orchestrator) ResponseTime(ctx context.Context, service string, w models.Window) (Report, error) {
	traces, err := o.serviceTraces(ctx, service, w)
	if err != nil {
		return Report{}, err
	}
	metrics := spantree.Quality(spantree.Build(flatten(traces), o.logger))
	return o.responseTime(ctx, service, w, metrics)
}

func (o *Orchestrator) responseTime(ctx context.Context, service string, w models.Window, metrics spantree.Metrics) (Report, error) {
	if metrics.ResponseTimeAvg == -1 {
		return noTraces(w, service, "service response time"), nil
	}
	if err := o.sink.SendNumericMetric(ctx, "response_time_avg."+service, metrics.ResponseTimeAvg, w.Midpoint()); err != nil {
		return Report{}, fmt.Errorf("failed to send response time for %s: %w", service, err)
	}
	return Report{
		Title: fmt.Sprintf("Response time from %s for service %s", w, service),
		Body:  fmt.Sprintf("response_time_avg: %.2f", metrics.ResponseTimeAvg),
	}, nil
}

// TraceQuality sends trace_coverability.<service> with the number of parent spans per
// coverability bucket. Spans without a usable duration are reported but not sent.
func (o *Orchestrator) TraceQuality(ctx context.Context, service string, w models.Window) (Report, error) {
	traces, err := o.serviceTraces(ctx, service, w)
	if err != nil {
		return Report{}, err
	}
	if len(traces) == 0 {
		return noTraces(w, service, "trace quality"), nil
	}
	metrics := spantree.Quality(spantree.Build(flatten(traces), o.logger))

	values := make([]models.Measurement, 0, len(spantree.CoverabilityBuckets))
	for _, bucket := range spantree.CoverabilityBuckets {
		if bucket == spantree.BucketError {
			continue
		}
		values = append(values, models.Measurement{Label: bucket, Value: float64(metrics.CoverabilityCount[bucket])})
	}
	if err := o.sink.SendNumericMetrics(ctx, "trace_coverability."+service, values, w.Midpoint()); err != nil {
		return Report{}, fmt.Errorf("failed to send trace quality for %s: %w", service, err)
	}

	return Report{
		Title: fmt.Sprintf("Trace quality analysis from %s for service %s completed", w, service),
		Body:  fmt.Sprintf("coverability: %v\nerrors: %d", metrics.CoverabilityCount, metrics.CoverabilityCount[spantree.BucketError]),
	}, nil
}

// services returns the configured services, or every service the trace feed knows about.
func (o *Orchestrator) services(ctx context.Context) ([]string, error) {
	if len(o.opts.Services) > 0 {
		return o.opts.Services, nil
	}
	services, err := o.traces.GetServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

// RunWindow runs every analysis for one window. Graph analyses come first, then the per-service
// trace analyses, which share one trace fetch per service.
func (o *Orchestrator) RunWindow(ctx context.Context, w models.Window) ([]Report, error) {
	var reports []Report
	for _, step := range []func(context.Context, models.Window) (Report, error){
		o.ServiceNeighbours,
		o.ServiceDegree,
		o.ServiceCallCount,
		o.Morphology,
	} {
		r, err := step(ctx, w)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}

	services, err := o.services(ctx)
	if err != nil {
		return reports, err
	}
	for _, service := range services {
		traces, err := o.serviceTraces(ctx, service, w)
		if err != nil {
			return reports, err
		}
		if len(traces) == 0 {
			reports = append(reports, noTraces(w, service, "service status codes"))
			continue
		}
		r, err := o.statusCodes(ctx, service, w, traces)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)

		r, err = o.responseTime(ctx, service, w, spantree.Quality(spantree.Build(flatten(traces), o.logger)))
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// RunAll splits [start, end) into windows and runs every analysis on each of them in order.
func (o *Orchestrator) RunAll(ctx context.Context, start, end int64, interval time.Duration) ([]Report, error) {
	windows := models.SplitWindows(start, end, interval)
	o.logger.Info("Running analyses", "windows", len(windows), "start", models.FormatMillis(start), "end", models.FormatMillis(end))

	var reports []Report
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		r, err := o.RunWindow(ctx, w)
		reports = append(reports, r...)
		if err != nil {
			return reports, fmt.Errorf("window %s: %w", w, err)
		}
		o.logger.Debug("Window done", "window", w.String(), "reports", len(r))
	}
	return reports, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
