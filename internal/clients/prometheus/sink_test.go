package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphy/internal/models"
)

func TestSendNumericMetric(t *testing.T) {
	sink := NewSink(Options{}, nil)

	require.NoError(t, sink.SendNumericMetric(context.Background(), "degree.front", 3, 1500))
	require.NoError(t, sink.SendNumericMetric(context.Background(), "graph_variance", -2, 1500))

	assert.Equal(t, 3.0, testutil.ToFloat64(sink.families["degree"].WithLabelValues("front")))
	assert.Equal(t, -2.0, testutil.ToFloat64(sink.families["graph_variance"].WithLabelValues("")))
	assert.Equal(t, 1500.0, testutil.ToFloat64(sink.window))

	count, err := testutil.GatherAndCount(sink.Registry(), "graphy_degree", "graphy_graph_variance")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSendNumericMetrics(t *testing.T) {
	sink := NewSink(Options{Namespace: "test"}, nil)

	err := sink.SendNumericMetrics(context.Background(), "status_code.front", []models.Measurement{
		{Label: "2XX", Value: 0.75},
		{Label: "5XX", Value: 0.25},
	}, 10)
	require.NoError(t, err)

	assert.Equal(t, 0.75, testutil.ToFloat64(sink.families["status_code"].WithLabelValues("front.2XX")))
	count, err := testutil.GatherAndCount(sink.Registry(), "test_status_code")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.NoError(t, sink.SendNumericMetrics(context.Background(), "status_code.back", nil, 10))
}

func TestNewWindowResetsFamilies(t *testing.T) {
	sink := NewSink(Options{}, nil)
	ctx := context.Background()

	require.NoError(t, sink.SendNumericMetric(ctx, "degree.front", 3, 100))
	require.NoError(t, sink.SendNumericMetric(ctx, "degree.back", 1, 200))

	count, err := testutil.GatherAndCount(sink.Registry(), "graphy_degree")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInvalidMetricName(t *testing.T) {
	sink := NewSink(Options{}, nil)
	assert.Error(t, sink.SendNumericMetric(context.Background(), ".front", 1, 1))
}

func TestPushToGateway(t *testing.T) {
	var pushes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/metrics/job/graphy/window/1500", r.URL.Path)
		pushes.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewSink(Options{PushgatewayURL: server.URL}, nil)
	require.NoError(t, sink.SendNumericMetric(context.Background(), "response_time_avg.front", 120, 1500))
	assert.Equal(t, int32(1), pushes.Load())
}

func TestPushFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewSink(Options{PushgatewayURL: server.URL}, nil)
	err := sink.SendNumericMetric(context.Background(), "degree.front", 1, 1)
	assert.ErrorContains(t, err, "failed to push metrics")
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name   string
		family string
		series string
	}{
		{"degree.front", "degree", "front"},
		{"status_code.front.2XX", "status_code", "front.2XX"},
		{"graph_gain_variance", "graph_gain_variance", ""},
		{"call-count.a", "call_count", "a"},
		{"9lives.a", "_lives", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			family, series := splitName(tt.name)
			assert.Equal(t, tt.family, family)
			assert.Equal(t, tt.series, series)
		})
	}
}
