package spantree

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphy/internal/models"
)

func parse(t *testing.T, records ...string) []*models.Span {
	t.Helper()
	spans := make([]*models.Span, 0, len(records))
	for _, r := range records {
		s, err := models.ParseSpan([]byte(r))
		require.NoError(t, err)
		spans = append(spans, s)
	}
	return spans
}

func TestBuild(t *testing.T) {
	spans := parse(t,
		`{"traceId":"T1","id":"S1","timestamp":1530000000000}`,
		`{"traceId":"T1","id":"S2","parentId":"S1"}`,
		`{"traceId":"T1","id":"S3","parentId":"S2"}`,
		`{"traceId":"T2","id":"S4"}`,
	)

	tree := Build(spans, nil)

	assert.Equal(t, 2, tree.TraceCount())
	assert.Equal(t, 4, tree.SpanCount())
	assert.Equal(t, 7, tree.NodeCount())
	assert.Equal(t, 2, tree.MaxDepth())
	assert.Equal(t, 0, tree.Skipped())

	n, ok := tree.Span("S3")
	require.True(t, ok)
	assert.Equal(t, "S2", n.Parent().ID)
	assert.Equal(t, int64(1530000000000000), tree.Traces()[0].Timestamp)
}

func TestBuildForwardReference(t *testing.T) {
	spans := parse(t,
		`{"traceId":"T1","id":"S2","parentId":"S1"}`,
		`{"traceId":"T1","id":"S1"}`,
	)

	tree := Build(spans, nil)

	assert.Equal(t, 2, tree.SpanCount())
	child, ok := tree.Span("S2")
	require.True(t, ok)
	assert.True(t, child.Parent().IsTrace())
	assert.Equal(t, "T1", child.Parent().ID)
}

func TestBuildSkipsInvalidSpans(t *testing.T) {
	spans := parse(t,
		`{"traceId":"T1","id":"S1"}`,
		`{"traceId":"T1","id":"S1"}`,
		`{"id":"S9"}`,
		`{"traceId":"T1"}`,
	)
	spans = append(spans, nil)

	tree := Build(spans, nil)

	assert.Equal(t, 1, tree.SpanCount())
	assert.Equal(t, 1, tree.TraceCount())
	assert.Equal(t, 4, tree.Skipped())
}

func TestBuildRootSpanReusingTraceID(t *testing.T) {
	spans := parse(t,
		`{"traceId":"abc","id":"abc"}`,
		`{"traceId":"abc","id":"def","parentId":"abc"}`,
	)

	tree := Build(spans, nil)

	assert.Equal(t, 2, tree.SpanCount())
	assert.Equal(t, 1, tree.MaxDepth())
}

func TestTreeCompleteness(t *testing.T) {
	records := []string{
		`{"traceId":"T1","id":"a"}`,
		`{"traceId":"T1","id":"b","parentId":"a"}`,
		`{"traceId":"T2","id":"c","parentId":"zz"}`,
		`{"traceId":"T3","id":"d"}`,
		`{"traceId":"T3","id":"e","parentId":"d"}`,
		`{"traceId":"T3","id":"f","parentId":"e"}`,
	}
	tree := Build(parse(t, records...), nil)

	seen := map[string]bool{}
	tree.Walk(func(_ *Node, n *Node, _ int) {
		seen[n.ID] = true
	})
	assert.Len(t, seen, len(records))
	assert.Equal(t, len(records), tree.SpanCount())
}

func TestEmptyTree(t *testing.T) {
	tree := Build(nil, nil)

	assert.Equal(t, 0, tree.TraceCount())
	assert.Equal(t, 0, tree.SpanCount())
	assert.Equal(t, 1, tree.NodeCount())
	assert.Equal(t, 0, tree.MaxDepth())
}

func TestWalkOrder(t *testing.T) {
	tree := Build(parse(t,
		`{"traceId":"T2","id":"x"}`,
		`{"traceId":"T1","id":"a"}`,
		`{"traceId":"T1","id":"b","parentId":"a"}`,
		`{"traceId":"T1","id":"c"}`,
	), nil)

	var order []string
	var depths []int
	tree.Walk(func(trace *Node, n *Node, depth int) {
		order = append(order, trace.ID+"/"+n.ID)
		depths = append(depths, depth)
	})
	assert.Equal(t, []string{"T2/x", "T1/a", "T1/b", "T1/c"}, order)
	assert.Equal(t, []int{0, 0, 1, 0}, depths)
}

func TestPrint(t *testing.T) {
	tree := Build(parse(t,
		`{"traceId":"T1","id":"a","timestamp":1}`,
		`{"traceId":"T1","id":"b","parentId":"a","timestamp":2}`,
	), nil)

	var buf bytes.Buffer
	require.NoError(t, tree.Print(&buf))
	assert.Equal(t, "root\n"+
		"└── 1000000000000000[T1]\n"+
		"    └── 1000000000000000[a]\n"+
		"        └── 2000000000000000[b]\n", buf.String())
}
