package sync

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/registry"
	"github.com/streetvisit/carbon-recycling-platform/internal/metrics"
)

const defaultBatchWorkers = 4

// InstanceSource lists the connector instances a batch run covers.
type InstanceSource interface {
	Instances() []connector.Instance
}

// Summary is the aggregate outcome of one batch run. Errors holds one
// "<connector id>: <message>" entry per failed connector.
type Summary struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Processed   int       `json:"processed"`
	Skipped     []string  `json:"skipped,omitempty"`
	TotalCO2eKg float64   `json:"total_co2e_kg"`
	Errors      []string  `json:"errors,omitempty"`
}

// BatchRunner refreshes every connector and recalculates its emissions. One
// connector's failure never stops the others.
type BatchRunner struct {
	Source  InstanceSource
	Workers int

	// Reporter receives run and per-connector events. Nil logs them to
	// Logger through a LogReporter.
	Reporter registry.Reporter

	Policy   RunPolicy
	Logger   *slog.Logger
	NewRunID func() string

	running atomic.Bool

	mu       sync.Mutex
	failures map[string]failureState
}

var _ Runner = (*BatchRunner)(nil)

type connectorOutcome struct {
	records int
	totalKg float64
}

func (r *BatchRunner) RunOnce(ctx context.Context) (Summary, error) {
	if r.Source == nil {
		return Summary{}, ErrNoConnectors
	}
	if !r.running.CompareAndSwap(false, true) {
		return Summary{}, ErrSyncAlreadyRunning
	}
	defer r.running.Store(false)

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := r.Policy.now

	summary := Summary{RunID: r.newRunID(), StartedAt: now()}

	instances := r.Source.Instances()
	if len(instances) == 0 {
		return summary, ErrNoConnectors
	}

	selected, unknown := scopeInstances(ctx, instances)
	for _, id := range unknown {
		summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", id, registry.ErrUnknownConnector))
	}

	due := make([]connector.Instance, 0, len(selected))
	forced := IsForcedSync(ctx)
	for _, inst := range selected {
		if !forced && r.deferred(inst.ID(), summary.StartedAt) {
			summary.Skipped = append(summary.Skipped, inst.ID())
			continue
		}
		due = append(due, inst)
	}
	if len(due) == 0 {
		summary.FinishedAt = now()
		if len(unknown) > 0 {
			return summary, nil
		}
		return summary, ErrNoConnectorsDue
	}

	reporter := r.Reporter
	if reporter == nil {
		reporter = &LogReporter{Logger: logger}
	}
	reporter.Report(registry.Event{RunID: summary.RunID, Connectors: len(due), At: summary.StartedAt})

	results := ParallelCollect(ctx, due, r.workers(), func(ctx context.Context, inst connector.Instance) (connectorOutcome, error) {
		out, err := calculateOne(ctx, inst)
		e := registry.Event{
			RunID:       summary.RunID,
			ConnectorID: inst.ID(),
			Kind:        inst.Info().Kind,
			Records:     out.records,
			TotalCO2eKg: out.totalKg,
			Err:         err,
			Retryable:   connector.IsRetryable(err),
			At:          now(),
		}
		reporter.Report(e)
		return out, err
	}, nil)

	total := decimal.Zero
	for i, res := range results {
		id := due[i].ID()
		if res.Err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", id, res.Err))
			r.recordFailure(id, res.Err, now())
			continue
		}
		r.recordSuccess(id)
		summary.Processed++
		total = total.Add(decimal.NewFromFloat(res.Value.totalKg))
	}
	summary.TotalCO2eKg = total.Round(2).InexactFloat64()
	summary.FinishedAt = now()

	metrics.ObserveBatch(len(summary.Errors), summary.FinishedAt)
	reporter.Report(registry.Event{
		RunID:       summary.RunID,
		Connectors:  len(due),
		Processed:   summary.Processed,
		Failed:      len(summary.Errors),
		TotalCO2eKg: summary.TotalCO2eKg,
		Done:        true,
		At:          summary.FinishedAt,
	})
	return summary, nil
}

// calculateOne fetches fresh data and derives emissions from it.
func calculateOne(ctx context.Context, inst connector.Instance) (connectorOutcome, error) {
	records, err := inst.Refresh(ctx)
	if err != nil {
		return connectorOutcome{}, err
	}
	result, err := inst.CalculateEmissions()
	if err != nil {
		return connectorOutcome{records: records}, err
	}
	return connectorOutcome{records: records, totalKg: result.TotalCO2eKg}, nil
}

// scopeInstances applies the context's connector scope. Unknown ids are
// returned sorted.
func scopeInstances(ctx context.Context, instances []connector.Instance) ([]connector.Instance, []string) {
	scope, ok := ConnectorScopeFromContext(ctx)
	if !ok {
		return instances, nil
	}
	byID := make(map[string]connector.Instance, len(instances))
	for _, inst := range instances {
		byID[inst.ID()] = inst
	}
	var selected []connector.Instance
	var unknown []string
	for _, id := range scope {
		inst, ok := byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		selected = append(selected, inst)
	}
	sort.Strings(unknown)
	return selected, unknown
}

func (r *BatchRunner) deferred(id string, now time.Time) bool {
	r.mu.Lock()
	state, ok := r.failures[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return now.Before(r.Policy.nextRunAt(state))
}

func (r *BatchRunner) recordFailure(id string, err error, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures == nil {
		r.failures = make(map[string]failureState)
	}
	state := r.failures[id]
	state.failures++
	state.lastAt = at
	state.retryable = connector.IsRetryable(err)
	r.failures[id] = state
}

func (r *BatchRunner) recordSuccess(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, id)
}

// Deferred lists connectors currently held back by the failure backoff.
func (r *BatchRunner) Deferred() []string {
	now := r.Policy.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for id, state := range r.failures {
		if now.Before(r.Policy.nextRunAt(state)) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (r *BatchRunner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return defaultBatchWorkers
}

func (r *BatchRunner) newRunID() string {
	if r.NewRunID != nil {
		return r.NewRunID()
	}
	return uuid.NewString()
}

