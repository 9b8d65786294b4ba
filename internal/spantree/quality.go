package spantree

// Coverability buckets, in display order.
const (
	BucketQuarter      = "0-25"
	BucketHalf         = "25-50"
	BucketThreeQuarter = "50-75"
	BucketFull         = "75-100"
	BucketOver         = ">100"
	BucketError        = "error"
)

// CoverabilityBuckets lists every bucket a parent span can fall into.
var CoverabilityBuckets = []string{BucketQuarter, BucketHalf, BucketThreeQuarter, BucketFull, BucketOver, BucketError}

// Metrics summarizes the quality of the traces in a tree.
type Metrics struct {
	// CoverabilityCount counts parent spans per bucket of child time over parent time.
	CoverabilityCount map[string]int `json:"coverability_count"`

	// ResponseTimeAvg is the mean root span duration in microseconds, -1 without data.
	ResponseTimeAvg float64 `json:"response_time_avg"`
}

// Quality computes trace coverability and the average response time of root spans.
func Quality(t *Tree) Metrics {
	m := Metrics{CoverabilityCount: make(map[string]int, len(CoverabilityBuckets))}
	for _, b := range CoverabilityBuckets {
		m.CoverabilityCount[b] = 0
	}

	var rootTotal int64
	var roots int
	t.Walk(func(_ *Node, n *Node, _ int) {
		if n.Span.IsRoot() {
			if d, ok := n.Span.Duration(); ok {
				rootTotal += d
				roots++
			}
		}
		if len(n.Children) == 0 {
			return
		}
		m.CoverabilityCount[coverabilityBucket(n)]++
	})

	m.ResponseTimeAvg = -1
	if roots > 0 {
		m.ResponseTimeAvg = float64(rootTotal) / float64(roots)
	}
	return m
}

func coverabilityBucket(n *Node) string {
	parent, ok := n.Span.Duration()
	if !ok || parent <= 0 {
		return BucketError
	}
	var covered int64
	for _, c := range n.Children {
		if d, ok := c.Span.Duration(); ok {
			covered += d
		}
	}
	pct := float64(covered) / float64(parent) * 100
	switch {
	case pct < 25:
		return BucketQuarter
	case pct < 50:
		return BucketHalf
	case pct < 75:
		return BucketThreeQuarter
	case pct <= 100:
		return BucketFull
	default:
		return BucketOver
	}
}
