package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"graphy/internal/clients/prometheus"
	"graphy/internal/clients/zipkin"
	"graphy/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the graph API on server.host:server.port.

Endpoints:
  GET  /health, /ready
  GET  /metrics
  GET  /api/graph?start=&end=
  GET  /api/stats?start=&end=
  POST /api/spans`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := zipkin.NewClient(a.cfg.Zipkin.URL, a.cfg.Zipkin.GetTimeoutDuration(), a.logger)
	sink := prometheus.NewSink(prometheus.Options{
		Namespace: a.cfg.Prometheus.Namespace,
		Job:       a.cfg.Prometheus.Job,
		Timeout:   a.cfg.Prometheus.GetTimeoutDuration(),
	}, a.logger)

	srv := server.New(a.cfg, client, sink, a.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if err := srv.Shutdown(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
