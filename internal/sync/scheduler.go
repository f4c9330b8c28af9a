package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Scheduler runs at startup and then every Interval. With Interval <= 0 there
// is no startup or periodic run and only Trigger starts one.
type Scheduler struct {
	Runner   Runner
	Interval time.Duration
	// Trigger requests an extra run; sends are dropped while one is pending.
	Trigger <-chan struct{}
	Logger  *slog.Logger
}

func (s *Scheduler) Run(ctx context.Context) {
	if s.Runner == nil || (s.Interval <= 0 && s.Trigger == nil) {
		return
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var tick <-chan time.Time
	if s.Interval > 0 {
		// Run immediately at startup.
		s.runOnce(ctx, logger, "initial calculation failed")

		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.runOnce(ctx, logger, "scheduled calculation failed")
		case <-s.Trigger:
			s.runOnce(ctx, logger, "triggered calculation failed")
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, logger *slog.Logger, failMsg string) {
	summary, err := s.Runner.RunOnce(ctx)
	switch {
	case err == nil:
		return
	case errors.Is(err, ErrNoConnectorsDue), errors.Is(err, ErrSyncAlreadyRunning):
		logger.Info("calculation skipped", "reason", err.Error())
	case errors.Is(err, context.Canceled):
		return
	default:
		logger.Error(failMsg, "run_id", summary.RunID, "err", err)
	}
}

// Signal returns a trigger channel and a non-blocking function that fires it.
func Signal() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	return ch, func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
