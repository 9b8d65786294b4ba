package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCodeBucket(t *testing.T) {
	tests := []struct {
		code   string
		bucket string
		ok     bool
	}{
		{"404", "4XX", true},
		{"200", "2XX", true},
		{"101", "1XX", true},
		{"503", "5XX", true},
		{"42", "", false},
		{"4040", "", false},
		{"", "", false},
		{"4x4", "", false},
		{"600", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			bucket, ok := StatusCodeBucket(tt.code)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.bucket, bucket)
		})
	}
}

func TestStatusCodesAndPercentages(t *testing.T) {
	parse := func(raw string) *Span {
		s, err := ParseSpan([]byte(raw))
		require.NoError(t, err)
		return s
	}
	traces := [][]*Span{
		{
			parse(`{"id":"a","tags":{"http.status_code":"200"}}`),
			parse(`{"id":"b","tags":{"http.status_code":"404"}}`),
		},
		{
			parse(`{"id":"c","tags":{"http.status_code":"201"}}`),
			parse(`{"id":"d","tags":{"http.status_code":"20"}}`),
			parse(`{"id":"e"}`),
		},
	}

	counts := StatusCodes(traces)
	assert.Equal(t, map[string]int{"2XX": 2, "4XX": 1}, counts)

	pct := StatusCodePercentages(counts)
	assert.InDelta(t, 2.0/3.0, pct["2XX"], 1e-9)
	assert.InDelta(t, 1.0/3.0, pct["4XX"], 1e-9)
	assert.Empty(t, StatusCodePercentages(map[string]int{}))
}
