package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/streetvisit/carbon-recycling-platform/internal/config"
	"github.com/streetvisit/carbon-recycling-platform/internal/metrics"
	"github.com/streetvisit/carbon-recycling-platform/internal/sync"
)

var workerCmd = &cobra.Command{
	Use:         "worker",
	Short:       "Run the background calculation loop without the HTTP API.",
	Args:        cobra.NoArgs,
	Annotations: structuredLogAnnotation(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker(cmd.Context())
	},
}

func runWorker(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.SyncInterval <= 0 {
		return errors.New("SYNC_INTERVAL must be > 0 to run the worker")
	}
	ctx := parent
	if ctx == nil {
		ctx = context.Background()
	}

	logger := slog.Default()
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	_, metricsErrCh := metrics.StartServer(ctx, cfg.MetricsAddr)
	if metricsErrCh != nil {
		go func() {
			if err, ok := <-metricsErrCh; ok && err != nil {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	trigger, fire := sync.Signal()
	go fireOnHangup(ctx, fire)

	logger.Info("calculation worker started", "interval", cfg.SyncInterval, "workers", cfg.SyncWorkers)
	scheduler := sync.Scheduler{Runner: a.newRunner(), Interval: cfg.SyncInterval, Trigger: trigger, Logger: logger}
	scheduler.Run(ctx)
	return nil
}
