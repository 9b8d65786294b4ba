// Package output renders service graphs and sends morphology notifications.
package output

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"graphy/internal/graph"
)

// DotRenderer renders graphs in Graphviz DOT format. Saved graphs go to dir as <name>.dot,
// shown graphs are written to out.
type DotRenderer struct {
	dir    string
	out    io.Writer
	logger *slog.Logger
}

// NewDotRenderer creates a renderer. A nil out writes shown graphs to stdout.
func NewDotRenderer(dir string, out io.Writer, logger *slog.Logger) *DotRenderer {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DotRenderer{dir: dir, out: out, logger: logger}
}

// Draw saves and/or shows g. Edges are labeled with their weight.
func (r *DotRenderer) Draw(g *graph.Graph, save, show bool) error {
	if !save && !show {
		return nil
	}
	dot := Dot(g)

	if save {
		if err := os.MkdirAll(r.dir, 0755); err != nil {
			return fmt.Errorf("failed to create graph directory: %w", err)
		}
		path := filepath.Join(r.dir, g.Name()+".dot")
		if err := os.WriteFile(path, []byte(dot), 0644); err != nil {
			return fmt.Errorf("failed to save graph: %w", err)
		}
		r.logger.Info("Graph saved", "path", path, "nodes", g.NumberOfNodes(), "edges", g.NumberOfEdges())
	}

	if show {
		if _, err := io.WriteString(r.out, dot); err != nil {
			return fmt.Errorf("failed to show graph: %w", err)
		}
	}
	return nil
}

// Dot returns the DOT source of g.
func Dot(g *graph.Graph) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("digraph %s {\n", quote(g.Name())))
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [shape=box, style=rounded];\n")
	sb.WriteString("\n")

	for _, n := range g.Nodes() {
		sb.WriteString(fmt.Sprintf("    %s;\n", quote(n)))
	}
	if g.NumberOfEdges() > 0 {
		sb.WriteString("\n")
	}
	for _, e := range g.Edges() {
		sb.WriteString(fmt.Sprintf("    %s -> %s [label=\"%d\"];\n", quote(e.From), quote(e.To), e.Weight))
	}

	sb.WriteString("}\n")
	return sb.String()
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}
