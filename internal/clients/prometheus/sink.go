// Package prometheus exports the numeric results of each analysis window as Prometheus gauges,
// served from a registry and optionally pushed to a Pushgateway.
package prometheus

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"graphy/internal/models"
)

// seriesLabel carries the dotted remainder of a metric name, e.g. "front.2XX".
const seriesLabel = "series"

// Options configures a Sink.
type Options struct {
	Namespace      string
	PushgatewayURL string
	Job            string
	Timeout        time.Duration
}

// Sink turns dotted metric names into gauge families. "degree.front" sets
// <namespace>_degree{series="front"}. All families are reset when a metric for a new window
// arrives, so the registry always holds a single window.
type Sink struct {
	mu       sync.Mutex
	opts     Options
	registry *prometheus.Registry
	families map[string]*prometheus.GaugeVec
	window   prometheus.Gauge
	current  int64
	client   *http.Client
	logger   *slog.Logger
}

// NewSink creates a metric sink with its own registry.
func NewSink(opts Options, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Namespace == "" {
		opts.Namespace = "graphy"
	}
	if opts.Job == "" {
		opts.Job = "graphy"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	registry := prometheus.NewRegistry()
	window := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: opts.Namespace,
		Name:      "window_midpoint_ms",
		Help:      "Epoch milliseconds the exported window values are recorded at",
	})
	registry.MustRegister(window)

	return &Sink{
		opts:     opts,
		registry: registry,
		families: make(map[string]*prometheus.GaugeVec),
		window:   window,
		client:   &http.Client{Timeout: opts.Timeout},
		logger:   logger,
	}
}

// Registry returns the registry holding the exported gauges.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// SendNumericMetric records one value for the window whose midpoint is timestampMs.
func (s *Sink) SendNumericMetric(ctx context.Context, name string, value float64, timestampMs int64) error {
	s.mu.Lock()
	err := s.set(name, value, timestampMs)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.push(ctx, timestampMs)
}

// SendNumericMetrics records a batch of values named prefix.label and pushes them once.
func (s *Sink) SendNumericMetrics(ctx context.Context, prefix string, values []models.Measurement, timestampMs int64) error {
	if len(values) == 0 {
		return nil
	}
	s.mu.Lock()
	for _, m := range values {
		if err := s.set(prefix+"."+m.Label, m.Value, timestampMs); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()
	return s.push(ctx, timestampMs)
}

func (s *Sink) set(name string, value float64, timestampMs int64) error {
	family, series := splitName(name)
	if family == "" {
		return fmt.Errorf("invalid metric name %q", name)
	}

	if timestampMs != s.current {
		for _, vec := range s.families {
			vec.Reset()
		}
		s.current = timestampMs
		s.window.Set(float64(timestampMs))
	}

	vec, ok := s.families[family]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: s.opts.Namespace,
			Name:      family,
			Help:      fmt.Sprintf("graphy %s per window", strings.ReplaceAll(family, "_", " ")),
		}, []string{seriesLabel})
		if err := s.registry.Register(vec); err != nil {
			return fmt.Errorf("failed to register metric %s: %w", family, err)
		}
		s.families[family] = vec
	}
	vec.WithLabelValues(series).Set(value)
	return nil
}

func (s *Sink) push(ctx context.Context, timestampMs int64) error {
	if s.opts.PushgatewayURL == "" {
		return nil
	}
	err := push.New(s.opts.PushgatewayURL, s.opts.Job).
		Gatherer(s.registry).
		Grouping("window", strconv.FormatInt(timestampMs, 10)).
		Client(s.client).
		PushContext(ctx)
	if err != nil {
		s.logger.Error("Failed to push metrics", "window", timestampMs, "error", err)
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}

// splitName splits "status_code.front.2XX" into the family "status_code" and series "front.2XX".
func splitName(name string) (family, series string) {
	family, series, _ = strings.Cut(name, ".")
	return sanitize(family), series
}

func sanitize(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
