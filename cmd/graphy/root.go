package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"graphy/internal/config"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "graphy",
		Short: "Reconstruct span trees and service dependency graphs",
		Long: `graphy reads distributed tracing spans, rebuilds the span tree of every trace
and derives the service dependency graph from it.

Commands:
  run      - Build the graph of a span file
  zipkin   - Build the graph from a Zipkin backend
  analyze  - Run the windowed analyses and export their metrics
  serve    - Serve the HTTP API`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Path to the config file (default: config.yaml in ., ./config or /etc/graphy)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn or error (overrides app.log_level)")

	rootCmd.AddCommand(
		newRunCmd(a),
		newZipkinCmd(a),
		newAnalyzeCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.App.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}

	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(a.logger)
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
