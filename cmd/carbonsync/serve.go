package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/streetvisit/carbon-recycling-platform/internal/config"
	"github.com/streetvisit/carbon-recycling-platform/internal/factors"
	httpapp "github.com/streetvisit/carbon-recycling-platform/internal/http"
	"github.com/streetvisit/carbon-recycling-platform/internal/http/handlers"
	"github.com/streetvisit/carbon-recycling-platform/internal/metrics"
	"github.com/streetvisit/carbon-recycling-platform/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run the HTTP API and the background calculation loop.",
	Args:        cobra.NoArgs,
	Annotations: structuredLogAnnotation(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
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
	catalog, changes, err := loadCatalog(cfg, logger)
	if err != nil {
		return err
	}

	runner := a.newRunner()
	// SYNC_INTERVAL=0 leaves only SIGHUP and POST /api/calculate.
	trigger, fire := sync.Signal()
	go fireOnHangup(ctx, fire)
	scheduler := sync.Scheduler{Runner: runner, Interval: cfg.SyncInterval, Trigger: trigger, Logger: logger}
	go scheduler.Run(ctx)

	_, metricsErrCh := metrics.StartServer(ctx, cfg.MetricsAddr)

	srv, err := httpapp.NewEchoServer(&handlers.Handlers{
		Registry:     a.registry,
		Syncer:       runner,
		Catalog:      catalog,
		MajorChanges: changes,
		SyncInterval: cfg.SyncInterval,
	}, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		errCh <- srv.StartServer(httpServer)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx, httpServer)
		return nil
	case err := <-metricsErrCh:
		return err
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// loadCatalog loads the factor dataset and, when configured, its change
// analysis. Without FACTORS_FILE the factor routes are not served.
func loadCatalog(cfg config.Config, logger *slog.Logger) (*factors.Catalog, *factors.MajorChanges, error) {
	if cfg.FactorsFile == "" {
		if cfg.MajorChangesFile != "" {
			return nil, nil, errors.New("MAJOR_CHANGES_FILE requires FACTORS_FILE")
		}
		return nil, nil, nil
	}
	catalog, err := factors.Load(cfg.FactorsFile)
	if err != nil {
		return nil, nil, err
	}
	meta := catalog.Metadata()
	logger.Info("conversion factors loaded", "path", cfg.FactorsFile, "factors", catalog.Len(), "source", meta.Source, "year", meta.Year)

	if cfg.MajorChangesFile == "" {
		return catalog, nil, nil
	}
	changes, err := factors.LoadMajorChanges(cfg.MajorChangesFile)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("major changes loaded", "path", cfg.MajorChangesFile, "changes", len(changes.Changes))
	return catalog, changes, nil
}

// fireOnHangup requests an extra calculation run on every SIGHUP.
func fireOnHangup(ctx context.Context, fire func()) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			slog.Info("calculation requested", "signal", "SIGHUP")
			fire()
		}
	}
}
