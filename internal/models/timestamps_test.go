package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamps(t *testing.T) {
	var spans []*Span
	for _, raw := range []string{
		`{"traceId":"t","id":"a","timestamp":1529884800000000}`,
		`{"traceId":"t","id":"b","timestamp":1529884800}`,
		`{"traceId":"t","id":"c","timestamp":1529884802000000}`,
		`{"traceId":"t","id":"d"}`,
		`{"traceId":"t","id":"e","timestamp":0}`,
	} {
		s, err := ParseSpan([]byte(raw))
		require.NoError(t, err)
		spans = append(spans, s)
	}

	stats := Timestamps(spans)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, int64(1529884800000000), stats.Min)
	assert.Equal(t, int64(1529884802000000), stats.Max)
	assert.InDelta(t, 1529884800666666.7, stats.Avg, 1)
}

func TestTimestampsEmpty(t *testing.T) {
	assert.Equal(t, TimestampStats{}, Timestamps(nil))
}
