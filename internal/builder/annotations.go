// Package builder derives service dependency graphs from span trees, dependency feeds and
// persisted edge lists.
package builder

import (
	"log/slog"

	"graphy/internal/graph"
	"graphy/internal/models"
	"graphy/internal/spantree"
)

// ArcAction is what happens to a flushed group of service names.
type ArcAction int

const (
	ArcIgnore ArcAction = iota
	ArcSelfLoop
	ArcEdge
	ArcDiscard
)

func (a ArcAction) String() string {
	switch a {
	case ArcIgnore:
		return "ignore"
	case ArcSelfLoop:
		return "self-loop"
	case ArcEdge:
		return "edge"
	default:
		return "discard"
	}
}

// arcPolicy maps the size of a flushed group to its action. Groups larger than two services
// cannot be ordered into a single call and are dropped, which loses edges.
var arcPolicy = map[int]ArcAction{
	0: ArcIgnore,
	1: ArcSelfLoop,
	2: ArcEdge,
}

// PolicyFor returns the action applied to a group of size services.
func PolicyFor(size int) ArcAction {
	if a, ok := arcPolicy[size]; ok {
		return a
	}
	return ArcDiscard
}

// AnnotationReport counts what FromTree saw while walking annotations.
type AnnotationReport struct {
	Spans       int `json:"spans"`
	Annotations int `json:"annotations"`
	Endpoints   int `json:"endpoints"`
	Faults      int `json:"faults"`
	Groups      int `json:"groups"`
	SelfLoops   int `json:"self_loops"`
	Edges       int `json:"edges"`
	Discarded   int `json:"discarded"`
	Nodes       int `json:"nodes"`
}

// arc is an insertion-ordered set of service names.
type arc struct {
	names []string
	seen  map[string]bool
}

func newArc() *arc {
	return &arc{seen: make(map[string]bool)}
}

func (a *arc) add(name string) {
	if name == "" || a.seen[name] {
		return
	}
	a.seen[name] = true
	a.names = append(a.names, name)
}

func (a *arc) reset() {
	a.names = nil
	a.seen = make(map[string]bool)
}

// FromTree derives a graph from the annotation sequences of every span in t.
//
// Service names seen on annotation endpoints accumulate into an arc across the spans of a
// trace. The arc is flushed when an annotation has no endpoint, at every trace boundary and at
// the end of the walk; PolicyFor decides what each flushed group becomes. A span whose
// annotation values are exactly {sr, ss} or {cs, cr} adds the last endpoint service it saw as a
// node, even if it gains no edge.
func FromTree(t *spantree.Tree, start, end int64, logger *slog.Logger) (*graph.Graph, AnnotationReport) {
	if logger == nil {
		logger = slog.Default()
	}
	g := graph.New("", start, end)
	var report AnnotationReport
	current := newArc()
	var trace *spantree.Node

	flush := func() {
		if len(current.names) == 0 {
			return
		}
		report.Groups++
		switch action := PolicyFor(len(current.names)); action {
		case ArcSelfLoop:
			g.AddEdge(current.names[0], current.names[0], graph.DefaultWeight)
			report.SelfLoops++
		case ArcEdge:
			g.AddEdge(current.names[0], current.names[1], graph.DefaultWeight)
			report.Edges++
		case ArcDiscard:
			report.Discarded++
			logger.Debug("Discarding ambiguous service group", "services", current.names)
		}
		current.reset()
	}

	t.Walk(func(tr *spantree.Node, n *spantree.Node, _ int) {
		if tr != trace {
			flush()
			trace = tr
		}
		report.Spans++

		values := make(map[string]bool)
		last := ""
		for _, a := range n.Span.Annotations() {
			report.Annotations++
			endpoints, ok := a.Endpoints()
			if !ok {
				report.Faults++
				logger.Debug("Annotation without endpoint", "span_id", n.ID, "value", a.Value)
				flush()
				return
			}
			values[a.Value] = true
			for _, ep := range endpoints {
				report.Endpoints++
				current.add(ep.ServiceName)
				if ep.ServiceName != "" {
					last = ep.ServiceName
				}
			}
		}

		if last != "" && (isExactly(values, models.ServerReceive, models.ServerSend) ||
			isExactly(values, models.ClientSend, models.ClientReceive)) {
			g.AddNode(last)
		}
	})
	flush()

	report.Nodes = g.NumberOfNodes()
	logger.Debug("Annotation graph built",
		"nodes", report.Nodes,
		"edges", g.NumberOfEdges(),
		"faults", report.Faults,
		"discarded", report.Discarded)
	return g, report
}

func isExactly(values map[string]bool, a, b string) bool {
	return len(values) == 2 && values[a] && values[b]
}
