package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	promsink "graphy/internal/clients/prometheus"
	"graphy/internal/config"
	"graphy/internal/models"
)

type stubFeed struct {
	deps     []models.Dependency
	err      error
	endTs    int64
	lookback int64
}

func (s *stubFeed) GetDependencies(_ context.Context, endTs, lookback int64) ([]models.Dependency, error) {
	s.endTs, s.lookback = endTs, lookback
	return s.deps, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Host: "0.0.0.0", Port: 8080},
		Analysis: config.AnalysisConfig{Interval: "1h"},
	}
}

func serve(t *testing.T, h *Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewBuffer(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	SetupRouter(h).ServeHTTP(w, req)
	return w
}

func sampleFeed() *stubFeed {
	return &stubFeed{deps: []models.Dependency{
		{Parent: "front", Child: "cart", CallCount: 12},
		{Parent: "cart", Child: "db", CallCount: 40},
	}}
}

func TestHandleGraph(t *testing.T) {
	feed := sampleFeed()
	handler := NewHandler(testConfig(), feed, nil, nil)

	w := serve(t, handler, http.MethodGet, "/api/graph?start=0&end=3600000", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response GraphResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "graph_0_3600000", response.Name)
	assert.Equal(t, []string{"front", "cart", "db"}, response.Nodes)
	require.Len(t, response.Edges, 2)
	assert.Equal(t, int64(40), response.Edges[1].Weight)
	assert.False(t, response.NoData)

	assert.Equal(t, int64(3600000), feed.endTs)
	assert.Equal(t, int64(3600000), feed.lookback)
}

func TestHandleGraphDefaultWindow(t *testing.T) {
	feed := sampleFeed()
	handler := NewHandler(testConfig(), feed, nil, nil)

	w := serve(t, handler, http.MethodGet, "/api/graph?end=01/01/1970%2002:00:00", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7200000), feed.endTs)
	assert.Equal(t, int64(3600000), feed.lookback)
}

func TestHandleGraphNoData(t *testing.T) {
	handler := NewHandler(testConfig(), &stubFeed{}, nil, nil)

	w := serve(t, handler, http.MethodGet, "/api/graph?start=0&end=3600000", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response GraphResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.NoData)
	assert.Empty(t, response.Nodes)
}

func TestHandleGraphErrors(t *testing.T) {
	tests := []struct {
		name   string
		feed   *stubFeed
		target string
		want   int
	}{
		{name: "feed failure", feed: &stubFeed{err: errors.New("zipkin down")}, target: "/api/graph?start=0&end=10", want: http.StatusBadGateway},
		{name: "bad start", feed: sampleFeed(), target: "/api/graph?start=yesterday&end=10", want: http.StatusBadRequest},
		{name: "empty window", feed: sampleFeed(), target: "/api/graph?start=10&end=10", want: http.StatusBadRequest},
		{name: "stats feed failure", feed: &stubFeed{err: errors.New("zipkin down")}, target: "/api/stats?start=0&end=10", want: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, NewHandler(testConfig(), tt.feed, nil, nil), http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.want, w.Code)

			var response map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.NotEmpty(t, response["error"])
		})
	}
}

func TestHandleStats(t *testing.T) {
	handler := NewHandler(testConfig(), sampleFeed(), nil, nil)

	w := serve(t, handler, http.MethodGet, "/api/stats?start=0&end=3600000", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 3.0, response["nodes"])
	assert.Equal(t, 2.0, response["edges"])
	assert.Equal(t, true, response["is_directed_acyclic"])
	assert.Equal(t, 2.0, response["diameter"])
}

func TestHandleSpans(t *testing.T) {
	handler := NewHandler(testConfig(), nil, nil, nil)

	body := strings.Join([]string{
		`{"traceId":"t1","id":"a","name":"get","timestamp":1000,"duration":200,"annotations":[` +
			`{"value":"cs","timestamp":1000,"endpoint":{"serviceName":"front"}},` +
			`{"value":"sr","timestamp":1010,"endpoint":{"serviceName":"cart"}},` +
			`{"value":"ss","timestamp":1190,"endpoint":{"serviceName":"cart"}},` +
			`{"value":"cr","timestamp":1200,"endpoint":{"serviceName":"front"}}]}`,
		`{"traceId":"t1","id":"b","parentId":"a","name":"query","timestamp":1020,"duration":100}`,
		`{broken`,
	}, "\n")

	w := serve(t, handler, http.MethodPost, "/api/spans", []byte(body))
	assert.Equal(t, http.StatusOK, w.Code)

	var response SpansResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 3, response.Records)
	assert.Equal(t, 1, response.Malformed)
	assert.Equal(t, 1, response.Traces)
	assert.Equal(t, 2, response.Spans)
	assert.Equal(t, 1, response.MaxDepth)
	assert.Equal(t, 2, response.Timestamps.Count)
	assert.Equal(t, int64(1000000000000000), response.Timestamps.Min)
	assert.Equal(t, int64(1020000000000000), response.Timestamps.Max)
	assert.Equal(t, 200.0, response.Quality.ResponseTimeAvg)
	require.Len(t, response.Graph.Edges, 1)
	assert.Equal(t, "front", response.Graph.Edges[0].From)
	assert.Equal(t, "cart", response.Graph.Edges[0].To)
}

func TestHandleSpansInvalid(t *testing.T) {
	handler := NewHandler(testConfig(), nil, nil, nil)

	w := serve(t, handler, http.MethodPost, "/api/spans", []byte(`[{"traceId":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMetrics(t *testing.T) {
	handler := NewHandler(testConfig(), sampleFeed(), promsink.NewSink(promsink.Options{}, nil), nil)

	w := serve(t, handler, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "graphy_degree")

	w = serve(t, handler, http.MethodGet, "/api/graph?start=0&end=3600000", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(t, handler, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `graphy_degree{series="cart"} 2`)
	assert.Contains(t, body, `graphy_degree_in{series="db"} 1`)
	assert.Contains(t, body, `graphy_call_count{series="front"} 12`)
	assert.Contains(t, body, `graphy_call_count_out{series="cart"} 40`)
	assert.Contains(t, body, `graphy_call_count_in{series="db"} 40`)

	w = serve(t, NewHandler(testConfig(), nil, nil, nil), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGraphNoDataRecordsNothing(t *testing.T) {
	handler := NewHandler(testConfig(), &stubFeed{}, promsink.NewSink(promsink.Options{}, nil), nil)

	w := serve(t, handler, http.MethodGet, "/api/graph?start=0&end=3600000", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(t, handler, http.MethodGet, "/metrics", nil)
	assert.NotContains(t, w.Body.String(), "graphy_call_count")
}

func TestHandleHealth(t *testing.T) {
	w := serve(t, NewHandler(testConfig(), nil, nil, nil), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "healthy", response["status"])
	assert.Contains(t, response, "timestamp")
}

func TestHandleReady(t *testing.T) {
	w := serve(t, NewHandler(testConfig(), sampleFeed(), nil, nil), http.MethodGet, "/ready", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "ready", response["status"])

	w = serve(t, NewHandler(testConfig(), nil, nil, nil), http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSpansMethodNotAllowed(t *testing.T) {
	w := serve(t, NewHandler(testConfig(), nil, nil, nil), http.MethodGet, "/api/spans", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
