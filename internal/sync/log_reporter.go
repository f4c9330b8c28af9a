package sync

import (
	"context"
	"log/slog"

	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/registry"
)

// LogReporter writes calculation events as structured log lines. Retryable
// connector failures log at warn, the rest at error.
type LogReporter struct {
	Logger *slog.Logger
	// ConnectorLevel is the level for successful per-connector results.
	ConnectorLevel slog.Level
}

func (r *LogReporter) Report(e registry.Event) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if e.RunID != "" {
		logger = logger.With("run_id", e.RunID)
	}

	if e.ConnectorID == "" {
		r.reportRun(logger, e)
		return
	}

	attrs := []any{"connector_id", e.ConnectorID}
	if e.Kind != "" {
		attrs = append(attrs, "kind", e.Kind)
	}
	if e.Err != nil {
		attrs = append(attrs, "retryable", e.Retryable, "err", e.Err)
		if e.Retryable {
			logger.Warn("connector calculation failed", attrs...)
		} else {
			logger.Error("connector calculation failed", attrs...)
		}
		return
	}
	attrs = append(attrs, "records", e.Records, "total_co2e_kg", e.TotalCO2eKg)
	logger.Log(context.Background(), r.ConnectorLevel, "connector calculated", attrs...)
}

func (r *LogReporter) reportRun(logger *slog.Logger, e registry.Event) {
	if !e.Done {
		logger.Info("calculation started", "connectors", e.Connectors)
		return
	}
	attrs := []any{
		"connectors", e.Connectors,
		"processed", e.Processed,
		"failed", e.Failed,
		"total_co2e_kg", e.TotalCO2eKg,
	}
	if e.Failed > 0 {
		logger.Warn("calculation finished with errors", attrs...)
		return
	}
	logger.Info("calculation finished", attrs...)
}
