// Package spantree rebuilds the causal span hierarchy of every trace in a batch.
package spantree

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"graphy/internal/models"
)

// Node is either a trace node (Span == nil) or a span node.
type Node struct {
	ID        string
	Timestamp int64
	Span      *models.Span
	Children  []*Node

	parent *Node
}

// IsTrace reports whether n groups the spans of one trace.
func (n *Node) IsTrace() bool {
	return n.Span == nil
}

// Parent returns the node n is attached to.
func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) add(child *Node) {
	child.parent = n
	n.Children = append(n.Children, child)
}

// Tree is a forest of traces under a synthetic super-root.
type Tree struct {
	root    *Node
	traces  map[string]*Node
	spans   map[string]*Node
	skipped int
	logger  *slog.Logger
}

// Build groups spans by trace id. Spans whose parent is not (yet) known are attached directly
// under their trace node. Spans with a duplicate id or no trace/span id are skipped and counted.
func Build(spans []*models.Span, logger *slog.Logger) *Tree {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tree{
		root:   &Node{},
		traces: make(map[string]*Node),
		spans:  make(map[string]*Node),
		logger: logger,
	}
	for _, span := range spans {
		if span == nil {
			t.skipped++
			continue
		}
		if err := t.insert(span); err != nil {
			t.skipped++
			t.logger.Warn("Skipping span", "trace_id", span.TraceID, "span_id", span.ID, "error", err)
		}
	}
	t.logger.Debug("Span tree built",
		"spans", t.SpanCount(),
		"input", len(spans),
		"traces", t.TraceCount(),
		"skipped", t.skipped)
	return t
}

func (t *Tree) insert(span *models.Span) error {
	if span.TraceID == "" {
		return fmt.Errorf("span has no trace id")
	}
	if span.ID == "" {
		return fmt.Errorf("span has no id")
	}
	if _, ok := t.spans[span.ID]; ok {
		return fmt.Errorf("duplicate span id %q", span.ID)
	}

	ts, _ := span.Timestamp()
	trace, ok := t.traces[span.TraceID]
	if !ok {
		trace = &Node{ID: span.TraceID, Timestamp: ts}
		t.traces[span.TraceID] = trace
		t.root.add(trace)
	}

	node := &Node{ID: span.ID, Timestamp: ts, Span: span}
	parent := trace
	if !span.IsRoot() {
		if p, ok := t.spans[span.ParentID]; ok {
			parent = p
		} else {
			t.logger.Debug("Parent span not seen yet, attaching to trace",
				"trace_id", span.TraceID, "span_id", span.ID, "parent_id", span.ParentID)
		}
	}
	parent.add(node)
	t.spans[span.ID] = node
	return nil
}

// TraceCount returns the number of traces in the tree.
func (t *Tree) TraceCount() int {
	return len(t.root.Children)
}

// NodeCount returns the number of nodes, super-root included.
func (t *Tree) NodeCount() int {
	return 1 + len(t.traces) + len(t.spans)
}

// SpanCount returns the number of span nodes.
func (t *Tree) SpanCount() int {
	return t.NodeCount() - 1 - t.TraceCount()
}

// Skipped returns how many spans could not be placed.
func (t *Tree) Skipped() int {
	return t.skipped
}

// Traces returns the trace nodes in insertion order.
func (t *Tree) Traces() []*Node {
	return t.root.Children
}

// Span looks up a span node by span id.
func (t *Tree) Span(id string) (*Node, bool) {
	n, ok := t.spans[id]
	return n, ok
}

// MaxDepth returns the depth of the deepest span below its trace node, starting at 0 for spans
// attached directly to a trace. An empty tree has depth 0.
func (t *Tree) MaxDepth() int {
	depth := height(t.root) - 2
	if depth < 0 {
		return 0
	}
	return depth
}

func height(n *Node) int {
	h := 0
	for _, c := range n.Children {
		if ch := height(c) + 1; ch > h {
			h = ch
		}
	}
	return h
}

// WalkFunc is called for every span node. depth is 0 for spans directly below the trace node.
type WalkFunc func(trace *Node, span *Node, depth int)

// Walk visits the traces in insertion order and, inside each trace, the span nodes depth-first in
// insertion order.
func (t *Tree) Walk(fn WalkFunc) {
	for _, trace := range t.root.Children {
		var visit func(n *Node, depth int)
		visit = func(n *Node, depth int) {
			fn(trace, n, depth)
			for _, c := range n.Children {
				visit(c, depth+1)
			}
		}
		for _, c := range trace.Children {
			visit(c, 0)
		}
	}
}

// Print writes an indented rendering of the tree.
func (t *Tree) Print(w io.Writer) error {
	var b strings.Builder
	b.WriteString("root\n")
	printChildren(&b, t.root, "")
	_, err := io.WriteString(w, b.String())
	return err
}

func printChildren(b *strings.Builder, n *Node, prefix string) {
	for i, c := range n.Children {
		branch, next := "├── ", "│   "
		if i == len(n.Children)-1 {
			branch, next = "└── ", "    "
		}
		fmt.Fprintf(b, "%s%s%d[%s]\n", prefix, branch, c.Timestamp, c.ID)
		printChildren(b, c, prefix+next)
	}
}
