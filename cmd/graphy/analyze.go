package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"graphy/internal/clients/prometheus"
	"graphy/internal/clients/zipkin"
	"graphy/internal/db"
	"graphy/internal/models"
	"graphy/internal/orchestrator"
	"graphy/internal/output"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var start, end, interval string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the windowed analyses and export their metrics",
		Long: `Split the analysis range into windows and, for every window, compute service
neighbours, degrees, call counts and the morphology of the dependency graph, then the status
codes and response time of every service. Snapshots are stored in the graph database and the
numeric results are pushed to the Prometheus Pushgateway.

Times use the layout "02/01/2006 15:04:05" (UTC).

Examples:
  graphy analyze
  graphy analyze --start "01/03/2024 00:00:00" --end "02/03/2024 00:00:00" --interval 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if start != "" {
				a.cfg.Analysis.Start = start
			}
			if end != "" {
				a.cfg.Analysis.End = end
			}
			if interval != "" {
				a.cfg.Analysis.Interval = interval
			}
			return a.analyze(cmd.Context(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start of the analysis range (overrides analysis.start)")
	cmd.Flags().StringVar(&end, "end", "", "End of the analysis range (overrides analysis.end)")
	cmd.Flags().StringVar(&interval, "interval", "", "Window length, e.g. 30m (overrides analysis.interval)")
	return cmd
}

func (a *app) analyze(ctx context.Context, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start, end, err := a.cfg.Analysis.Range(time.Now())
	if err != nil {
		return err
	}

	store, err := db.New(a.cfg.DB.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		return err
	}

	client := zipkin.NewClient(a.cfg.Zipkin.URL, a.cfg.Zipkin.GetTimeoutDuration(), a.logger)
	sink := prometheus.NewSink(prometheus.Options{
		Namespace:      a.cfg.Prometheus.Namespace,
		PushgatewayURL: a.cfg.Prometheus.PushgatewayURL,
		Job:            a.cfg.Prometheus.Job,
		Timeout:        a.cfg.Prometheus.GetTimeoutDuration(),
	}, a.logger)

	var notifier orchestrator.Notifier
	if slack := output.NewSlackSenderFromConfig(a.cfg.Output.Slack); slack != nil {
		notifier = slack
	}

	orch := orchestrator.New(client, client, store, sink, notifier, orchestrator.Options{
		GraphsCollection: a.cfg.Analysis.GraphsCollection,
		DiffsCollection:  a.cfg.Analysis.DiffsCollection,
		TraceLimit:       a.cfg.Zipkin.TraceLimit,
		Services:         a.cfg.Analysis.Services,
	}, a.logger)

	reports, err := orch.RunAll(ctx, start, end, a.cfg.Analysis.GetIntervalDuration())
	for _, r := range reports {
		fmt.Fprintf(w, "%s\n%s\n\n", r.Title, r.Body)
	}
	if err != nil {
		return err
	}

	a.logger.Info("Analysis finished",
		"start", models.FormatMillis(start),
		"end", models.FormatMillis(end),
		"reports", len(reports))
	return nil
}
