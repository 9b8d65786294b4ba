// Package config provides configuration structures and loading logic for graphy.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"graphy/internal/models"
)

// Config represents the root configuration structure.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Zipkin     ZipkinConfig     `mapstructure:"zipkin"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	DB         DBConfig         `mapstructure:"db"`
	Output     OutputConfig     `mapstructure:"output"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Server     ServerConfig     `mapstructure:"server"`
}

// AppConfig defines process-wide settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// ZipkinConfig defines connection settings for the Zipkin-compatible tracing backend.
type ZipkinConfig struct {
	URL        string `mapstructure:"url"`
	Timeout    string `mapstructure:"timeout"`
	TraceLimit int    `mapstructure:"trace_limit"`
}

// PrometheusConfig defines how numeric metrics leave the process.
type PrometheusConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
	Namespace      string `mapstructure:"namespace"`
	Timeout        string `mapstructure:"timeout"`
}

// DBConfig defines the SQLite graph store location.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// OutputConfig defines where rendered graphs and notifications go.
type OutputConfig struct {
	GraphDir string            `mapstructure:"graph_dir"`
	Slack    SlackOutputConfig `mapstructure:"slack"`
}

// SlackOutputConfig defines settings for the Slack incoming webhook integration.
type SlackOutputConfig struct {
	WebhookURLEnv string `mapstructure:"webhook_url_env"`
	WebhookURL    string `mapstructure:"-"`
	Enabled       bool   `mapstructure:"enabled"`
}

// AnalysisConfig defines the time range and granularity of windowed analyses.
type AnalysisConfig struct {
	Start            string   `mapstructure:"start"`
	End              string   `mapstructure:"end"`
	Interval         string   `mapstructure:"interval"`
	Services         []string `mapstructure:"services"`
	GraphsCollection string   `mapstructure:"graphs_collection"`
	DiffsCollection  string   `mapstructure:"diffs_collection"`
}

// ServerConfig defines the HTTP API listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetTimeoutDuration returns the timeout as a time.Duration
func (c *ZipkinConfig) GetTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetTimeoutDuration parses the configured push timeout into a time.Duration.
func (c *PrometheusConfig) GetTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d == 0 {
		return 10 * time.Second
	}
	return d
}

// GetIntervalDuration parses the window length into a time.Duration.
func (c *AnalysisConfig) GetIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	if d == 0 {
		return time.Hour
	}
	return d
}

// Range parses Start and End into epoch milliseconds. An empty End means now and an empty Start
// means one interval before End.
func (c *AnalysisConfig) Range(now time.Time) (start, end int64, err error) {
	end = now.UnixMilli()
	if c.End != "" {
		if end, err = models.ParseMillis(c.End); err != nil {
			return 0, 0, fmt.Errorf("analysis.end: %w", err)
		}
	}
	start = end - c.GetIntervalDuration().Milliseconds()
	if c.Start != "" {
		if start, err = models.ParseMillis(c.Start); err != nil {
			return 0, 0, fmt.Errorf("analysis.start: %w", err)
		}
	}
	if end <= start {
		return 0, 0, fmt.Errorf("analysis range is empty: %s to %s", models.FormatMillis(start), models.FormatMillis(end))
	}
	return start, end, nil
}

// Load loads configuration from config.yaml (or the given file) and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/graphy")
	}

	// Allow environment variables to override config
	v.SetEnvPrefix("graphy")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.log_level", "info")
	v.SetDefault("zipkin.url", "http://localhost:9411")
	v.SetDefault("zipkin.timeout", "30s")
	v.SetDefault("zipkin.trace_limit", 10000)
	v.SetDefault("prometheus.pushgateway_url", "")
	v.SetDefault("prometheus.job", "graphy")
	v.SetDefault("prometheus.namespace", "graphy")
	v.SetDefault("prometheus.timeout", "10s")
	v.SetDefault("db.path", "data/graphy.db")
	v.SetDefault("output.graph_dir", "graphs")
	v.SetDefault("output.slack.enabled", false)
	v.SetDefault("output.slack.webhook_url_env", "SLACK_WEBHOOK_URL")
	v.SetDefault("analysis.start", "")
	v.SetDefault("analysis.end", "")
	v.SetDefault("analysis.interval", "1h")
	v.SetDefault("analysis.services", []string{})
	v.SetDefault("analysis.graphs_collection", "graphs")
	v.SetDefault("analysis.diffs_collection", "graph_diffs")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Output.Slack.WebhookURLEnv != "" {
		cfg.Output.Slack.WebhookURL = os.Getenv(cfg.Output.Slack.WebhookURLEnv)
	}

	return &cfg, nil
}
