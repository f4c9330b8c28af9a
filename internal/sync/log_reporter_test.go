package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/registry"
)

type loggedRecord struct {
	level   slog.Level
	message string
	attrs   map[string]any
}

type recordingHandler struct {
	mu      sync.Mutex
	attrs   []slog.Attr
	records *[]loggedRecord
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{records: &[]loggedRecord{}}
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	rec := loggedRecord{level: r.Level, message: r.Message, attrs: map[string]any{}}
	for _, a := range h.attrs {
		rec.attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.attrs[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	*h.records = append(*h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{attrs: append(append([]slog.Attr{}, h.attrs...), attrs...), records: h.records}
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func (h *recordingHandler) Records() []loggedRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]loggedRecord(nil), *h.records...)
}

func TestLogReporterConnectorEvents(t *testing.T) {
	t.Parallel()

	retryErr := errors.New("upstream 503")
	configErr := fmt.Errorf("octopus-home: %w", connector.ErrMissingCredentials)

	tests := []struct {
		name      string
		event     registry.Event
		level     slog.Level
		message   string
		wantAttrs map[string]any
	}{
		{
			name:      "result",
			event:     registry.Event{RunID: "run-1", ConnectorID: "octopus-main", Kind: "octopus_energy", Records: 3, TotalCO2eKg: 28.57},
			level:     slog.LevelInfo,
			message:   "connector calculated",
			wantAttrs: map[string]any{"run_id": "run-1", "connector_id": "octopus-main", "kind": "octopus_energy", "records": int64(3), "total_co2e_kg": 28.57},
		},
		{
			name:      "retryable failure",
			event:     registry.Event{RunID: "run-1", ConnectorID: "geotab", Err: retryErr, Retryable: true},
			level:     slog.LevelWarn,
			message:   "connector calculation failed",
			wantAttrs: map[string]any{"connector_id": "geotab", "retryable": true},
		},
		{
			name:      "configuration failure",
			event:     registry.Event{RunID: "run-1", ConnectorID: "octopus-home", Err: configErr},
			level:     slog.LevelError,
			message:   "connector calculation failed",
			wantAttrs: map[string]any{"connector_id": "octopus-home", "retryable": false},
		},
		{
			name:      "run start",
			event:     registry.Event{RunID: "run-1", Connectors: 4},
			level:     slog.LevelInfo,
			message:   "calculation started",
			wantAttrs: map[string]any{"run_id": "run-1", "connectors": int64(4)},
		},
		{
			name:      "run finished",
			event:     registry.Event{RunID: "run-1", Connectors: 2, Processed: 2, TotalCO2eKg: 40.1, Done: true},
			level:     slog.LevelInfo,
			message:   "calculation finished",
			wantAttrs: map[string]any{"processed": int64(2), "failed": int64(0), "total_co2e_kg": 40.1},
		},
		{
			name:      "run finished with errors",
			event:     registry.Event{RunID: "run-1", Connectors: 2, Processed: 1, Failed: 1, Done: true},
			level:     slog.LevelWarn,
			message:   "calculation finished with errors",
			wantAttrs: map[string]any{"failed": int64(1)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler := newRecordingHandler()
			reporter := &LogReporter{Logger: slog.New(handler)}
			reporter.Report(tc.event)

			records := handler.Records()
			if len(records) != 1 {
				t.Fatalf("records = %d, want 1", len(records))
			}
			got := records[0]
			if got.level != tc.level || got.message != tc.message {
				t.Fatalf("logged %s %q, want %s %q", got.level, got.message, tc.level, tc.message)
			}
			for k, want := range tc.wantAttrs {
				if got.attrs[k] != want {
					t.Fatalf("attr %s = %#v, want %#v", k, got.attrs[k], want)
				}
			}
		})
	}
}

func TestLogReporterConnectorLevel(t *testing.T) {
	t.Parallel()

	handler := newRecordingHandler()
	reporter := &LogReporter{Logger: slog.New(handler), ConnectorLevel: slog.LevelDebug}
	reporter.Report(registry.Event{ConnectorID: "octopus-main", TotalCO2eKg: 1})

	records := handler.Records()
	if len(records) != 1 || records[0].level != slog.LevelDebug {
		t.Fatalf("records = %+v, want one debug line", records)
	}
	if _, ok := records[0].attrs["run_id"]; ok {
		t.Fatalf("run_id logged without a run")
	}
}
