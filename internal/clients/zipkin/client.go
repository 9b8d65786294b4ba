// Package zipkin provides a client for the Zipkin-compatible tracing backend HTTP API.
package zipkin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"graphy/internal/models"
)

const (
	apiV1 = "/api/v1/"
	apiV2 = "/api/v2/"
)

// errNoData marks responses the backend uses to say a window holds nothing.
var errNoData = errors.New("no data")

// Client implements HTTP interaction with the Zipkin API to fetch dependencies and traces.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Zipkin client
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// doRequest performs one HTTP request and returns the body of a 2xx response.
func (c *Client) doRequest(ctx context.Context, method, apiPath string, params url.Values, body []byte) ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	u.Path = apiPath
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zipkin request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotFound:
		return nil, errNoData
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("unexpected status code from zipkin: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return data, nil
}

// GetDependencies fetches the aggregated call links of the lookback milliseconds before endTs.
// A nil slice means the backend had no data for the window.
func (c *Client) GetDependencies(ctx context.Context, endTs, lookback int64) ([]models.Dependency, error) {
	params := url.Values{
		"endTs":    []string{strconv.FormatInt(endTs, 10)},
		"lookback": []string{strconv.FormatInt(lookback, 10)},
	}

	resp, err := c.doRequest(ctx, http.MethodGet, apiV2+"dependencies", params, nil)
	if errors.Is(err, errNoData) {
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to fetch dependencies", "end_ts", endTs, "lookback", lookback, "error", err)
		return nil, err
	}

	var deps []models.Dependency
	if err := json.Unmarshal(resp, &deps); err != nil {
		return nil, fmt.Errorf("failed to parse dependencies response: %w", err)
	}
	return deps, nil
}

// GetServices lists the service names known to the backend.
func (c *Client) GetServices(ctx context.Context) ([]string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, apiV2+"services", nil, nil)
	if errors.Is(err, errNoData) {
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to fetch services", "error", err)
		return nil, err
	}

	var services []string
	if err := json.Unmarshal(resp, &services); err != nil {
		return nil, fmt.Errorf("failed to parse services response: %w", err)
	}
	return services, nil
}

// GetSpanNames lists the span names recorded by a service.
func (c *Client) GetSpanNames(ctx context.Context, service string) ([]string, error) {
	params := url.Values{"serviceName": []string{service}}
	resp, err := c.doRequest(ctx, http.MethodGet, apiV2+"spans", params, nil)
	if errors.Is(err, errNoData) {
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to fetch span names", "service", service, "error", err)
		return nil, err
	}

	var names []string
	if err := json.Unmarshal(resp, &names); err != nil {
		return nil, fmt.Errorf("failed to parse spans response: %w", err)
	}
	return names, nil
}

// GetTraces fetches up to limit traces of a service in the lookback milliseconds before endTs.
// Each trace is returned as its raw span records.
func (c *Client) GetTraces(ctx context.Context, service string, endTs, lookback int64, limit int) ([][]json.RawMessage, error) {
	params := url.Values{
		"endTs":    []string{strconv.FormatInt(endTs, 10)},
		"lookback": []string{strconv.FormatInt(lookback, 10)},
	}
	if service != "" {
		params.Set("serviceName", service)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	resp, err := c.doRequest(ctx, http.MethodGet, apiV2+"traces", params, nil)
	if errors.Is(err, errNoData) {
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to fetch traces", "service", service, "error", err)
		return nil, err
	}

	var traces [][]json.RawMessage
	if err := json.Unmarshal(resp, &traces); err != nil {
		return nil, fmt.Errorf("failed to parse traces response: %w", err)
	}
	return traces, nil
}

// GetTrace fetches the span records of one trace.
func (c *Client) GetTrace(ctx context.Context, traceID string) ([]json.RawMessage, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, apiV2+"trace/"+url.PathEscape(traceID), nil, nil)
	if errors.Is(err, errNoData) {
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to fetch trace by ID", "trace_id", traceID, "error", err)
		return nil, err
	}

	var spans []json.RawMessage
	if err := json.Unmarshal(resp, &spans); err != nil {
		return nil, fmt.Errorf("failed to parse trace response: %w", err)
	}
	return spans, nil
}

// PostSpans uploads a json array of v1 spans. The backend acknowledges with 202 Accepted.
func (c *Client) PostSpans(ctx context.Context, spans []byte) error {
	if _, err := c.doRequest(ctx, http.MethodPost, apiV1+"spans", nil, spans); err != nil {
		c.logger.Error("Failed to post spans", "bytes", len(spans), "error", err)
		return err
	}
	return nil
}
