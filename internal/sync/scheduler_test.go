package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
	ran   chan struct{}
}

func (r *countingRunner) RunOnce(context.Context) (Summary, error) {
	r.calls.Add(1)
	if r.ran != nil {
		select {
		case r.ran <- struct{}{}:
		default:
		}
	}
	return Summary{RunID: "run"}, r.err
}

func waitRun(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a run")
	}
}

func TestSchedulerRunsImmediatelyAndOnTrigger(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{ran: make(chan struct{}, 4)}
	trigger, fire := Signal()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{Runner: runner, Interval: time.Hour, Trigger: trigger}
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	waitRun(t, runner.ran)
	fire()
	waitRun(t, runner.ran)

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not stop")
	}
	if got := runner.calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestSchedulerTicks(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{ran: make(chan struct{}, 8), err: errors.New("boom")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go (&Scheduler{Runner: runner, Interval: 5 * time.Millisecond}).Run(ctx)
	waitRun(t, runner.ran)
	waitRun(t, runner.ran)
	waitRun(t, runner.ran)
}

func TestSchedulerDisabled(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{}
	(&Scheduler{Runner: runner}).Run(context.Background())
	(&Scheduler{Interval: time.Second}).Run(context.Background())
	if runner.calls.Load() != 0 {
		t.Fatalf("disabled scheduler ran")
	}
}

func TestSchedulerWithoutIntervalRunsOnlyOnTrigger(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{ran: make(chan struct{}, 4)}
	trigger, fire := Signal()
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		(&Scheduler{Runner: runner, Trigger: trigger}).Run(ctx)
		close(stopped)
	}()

	select {
	case <-runner.ran:
		t.Fatalf("scheduler without interval ran before a trigger")
	case <-time.After(50 * time.Millisecond):
	}
	fire()
	waitRun(t, runner.ran)

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not stop")
	}
	if got := runner.calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestSignalCoalesces(t *testing.T) {
	t.Parallel()

	ch, fire := Signal()
	fire()
	fire()
	<-ch
	select {
	case <-ch:
		t.Fatalf("expected coalesced signal")
	default:
	}
}
