package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/streetvisit/carbon-recycling-platform/internal/config"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/configstore"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/providers"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/registry"
	"github.com/streetvisit/carbon-recycling-platform/internal/metrics"
	"github.com/streetvisit/carbon-recycling-platform/internal/sync"
)

// app holds the wiring shared by serve, worker and sync.
type app struct {
	cfg      config.Config
	registry *registry.ConnectorRegistry
	logger   *slog.Logger
}

func registerProviders(reg *registry.ConnectorRegistry, httpClient *http.Client) error {
	var opts []providers.Option
	if httpClient != nil {
		opts = append(opts, providers.WithHTTPClient(httpClient))
	}
	return providers.RegisterAll(reg, opts...)
}

func buildConnectorRegistry(cfg config.Config) (*registry.ConnectorRegistry, error) {
	reg := registry.NewRegistry()
	if err := registerProviders(reg, &http.Client{Timeout: cfg.HTTPClientTimeout}); err != nil {
		return nil, err
	}
	return reg, nil
}

// buildApp registers every provider and one instance per enabled manifest
// entry. A connector whose secrets cannot be resolved is skipped and logged;
// the others still start.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reg, err := buildConnectorRegistry(cfg)
	if err != nil {
		return nil, err
	}

	manifest, err := configstore.LoadManifest(cfg.ConnectorsFile)
	if err != nil {
		return nil, err
	}
	resolver, err := configstore.NewVaultResolver(configstore.VaultConfig{
		Address:   cfg.VaultAddr,
		Namespace: cfg.VaultNamespace,
		Token:     cfg.VaultToken,
	})
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}

	opts := connectorOptions(logger)
	enabled := manifest.Enabled()
	var errs []error
	for _, ic := range enabled {
		resolved, err := configstore.ResolveSecrets(ctx, ic, resolver)
		if err != nil {
			logger.Error("connector skipped", "connector_id", ic.ID, "kind", ic.Kind, "err", err)
			errs = append(errs, err)
			continue
		}
		if _, err := reg.AddInstance(resolved, opts); err != nil {
			logger.Error("connector skipped", "connector_id", ic.ID, "kind", ic.Kind, "err", err)
			errs = append(errs, err)
			continue
		}
	}
	if len(enabled) > 0 && len(errs) == len(enabled) {
		return nil, fmt.Errorf("no connector could be started: %w", errors.Join(errs...))
	}

	logger.Info("connectors loaded", "manifest", cfg.ConnectorsFile, "enabled", len(enabled), "skipped", len(errs))
	return &app{cfg: cfg, registry: reg, logger: logger}, nil
}

func connectorOptions(logger *slog.Logger) connector.Options {
	return connector.Options{
		Logger: logger,
		OnStatus: func(id string, info connector.Info, prev, next connector.Status) {
			metrics.ObserveTransition(info.Kind, id, string(prev.State), string(next.State))
			if next.State == connector.StateError {
				logger.Warn("connector error", "connector_id", id, "kind", info.Kind, "retryable", next.Retryable, "message", next.Message)
			}
		},
	}
}

func (a *app) newRunner() *sync.BatchRunner {
	return &sync.BatchRunner{
		Source:   a.registry,
		Workers:  a.cfg.SyncWorkers,
		Reporter: &sync.LogReporter{Logger: a.logger},
		Logger:   a.logger,
		Policy: sync.RunPolicy{
			FailureBackoffBase: a.cfg.SyncFailureBackoff,
			FailureBackoffMax:  a.cfg.SyncFailureBackoffMax,
		},
	}
}
