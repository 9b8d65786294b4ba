package models

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpanV1(t *testing.T) {
	raw := []byte(`{
		"traceId": "t1",
		"id": "s2",
		"parentId": "s1",
		"name": "get",
		"timestamp": 1530000000000,
		"duration": 1200,
		"annotations": [
			{"timestamp": 1530000000000001, "value": "cs", "endpoint": {"serviceName": "svc-a", "ipv4": "10.0.0.1"}},
			{"timestamp": 1530000000000002, "value": "cr", "endpoint": {"serviceName": "svc-b"}}
		],
		"binaryAnnotations": [
			{"key": "http.status_code", "value": "404"},
			{"protocol": "HTTP", "http.url": "/cart"}
		]
	}`)

	span, err := ParseSpan(raw)
	require.NoError(t, err)

	assert.Equal(t, "t1", span.TraceID)
	assert.Equal(t, "s2", span.ID)
	assert.Equal(t, "s1", span.ParentID)
	assert.False(t, span.IsRoot())

	d, ok := span.Duration()
	assert.True(t, ok)
	assert.Equal(t, int64(1200), d)

	anns := span.Annotations()
	require.Len(t, anns, 2)
	assert.Equal(t, ClientSend, anns[0].Value)
	eps, ok := anns[0].Endpoints()
	require.True(t, ok)
	assert.Equal(t, []Endpoint{{ServiceName: "svc-a", IPv4: "10.0.0.1"}}, eps)

	code, ok := span.StatusCode()
	assert.True(t, ok)
	assert.Equal(t, "404", code)

	url, ok := span.Tag("http.url")
	assert.True(t, ok)
	assert.Equal(t, "/cart", url)
	assert.Equal(t, "svc-a", span.ServiceName())
}

func TestParseSpanV2Tags(t *testing.T) {
	span, err := ParseSpan([]byte(`{"traceId":"t","id":"a","localEndpoint":{"serviceName":"api"},"tags":{"http.status_code":"503"}}`))
	require.NoError(t, err)

	code, ok := span.StatusCode()
	assert.True(t, ok)
	assert.Equal(t, "503", code)
	assert.Equal(t, "api", span.ServiceName())
	assert.True(t, span.IsRoot())
}

func TestParseSpanMissingFieldsDegrade(t *testing.T) {
	span, err := ParseSpan([]byte(`{"traceId": "t1", "parentId": null}`))
	require.NoError(t, err)

	_, ok := span.Timestamp()
	assert.False(t, ok)
	_, ok = span.Duration()
	assert.False(t, ok)
	_, ok = span.StatusCode()
	assert.False(t, ok)
	assert.True(t, span.IsRoot())
	assert.NotNil(t, span.Annotations())
	assert.Empty(t, span.Annotations())
	assert.Empty(t, span.BinaryAnnotations())
	assert.Nil(t, span.LocalEndpoint())
}

func TestAnnotationWithoutEndpoint(t *testing.T) {
	span, err := ParseSpan([]byte(`{"traceId":"t","id":"a","annotations":[{"value":"sr"},{"value":"ss","endpoint":null}]}`))
	require.NoError(t, err)

	for _, a := range span.Annotations() {
		eps, ok := a.Endpoints()
		assert.False(t, ok)
		assert.Empty(t, eps)
	}
}

func TestParseSpanMalformed(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		cause error
	}{
		{"truncated", `{"traceId": "t1"`, ErrInvalidJSON},
		{"garbage", `not json`, ErrInvalidJSON},
		{"array", `[1, 2]`, ErrNotObject},
		{"number", `42`, ErrNotObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpan([]byte(tt.raw))
			var merr *MalformedSpanError
			require.True(t, errors.As(err, &merr))
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		in       int64
		expected int64
	}{
		{"milliseconds", 1530000000000, 1530000000000000},
		{"seconds", 1530000000, 1530000000000000},
		{"already micros", 1530000000000001, 1530000000000001},
		{"wider than micros", 15300000000000012, 15300000000000012},
		{"single digit", 7, 7000000000000000},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := NormalizeTimestamp(tt.in)
			assert.Equal(t, tt.expected, once)
			assert.Equal(t, once, NormalizeTimestamp(once))
		})
	}
}

func TestNormalizeTimestampAlwaysSixteenDigits(t *testing.T) {
	for ts := int64(1); ts < 1e16; ts = ts*7 + 3 {
		got := NormalizeTimestamp(ts)
		assert.Len(t, strconv.FormatInt(got, 10), 16, "input %d", ts)
		assert.Equal(t, got, NormalizeTimestamp(got))
	}
}

func TestSpanTimestampMemoized(t *testing.T) {
	span, err := ParseSpan([]byte(`{"traceId":"t","id":"a","timestamp":"1530000000000"}`))
	require.NoError(t, err)

	first, ok := span.Timestamp()
	require.True(t, ok)
	second, _ := span.Timestamp()
	assert.Equal(t, int64(1530000000000000), first)
	assert.Equal(t, first, second)
}
