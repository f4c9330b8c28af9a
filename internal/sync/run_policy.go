package sync

import (
	"time"
)

// RunPolicy defers connectors after consecutive failures. Non-retryable
// failures (rejected or missing credentials) wait for the maximum delay.
type RunPolicy struct {
	FailureBackoffBase time.Duration
	FailureBackoffMax  time.Duration
	Now                func() time.Time
}

func (p RunPolicy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

type failureState struct {
	failures  int
	lastAt    time.Time
	retryable bool
}

// nextRunAt returns when a connector with the given failure history is due.
func (p RunPolicy) nextRunAt(s failureState) time.Time {
	if s.failures <= 0 {
		return time.Time{}
	}
	if !s.retryable && p.FailureBackoffMax > 0 {
		return s.lastAt.Add(p.FailureBackoffMax)
	}
	return s.lastAt.Add(failureBackoffDelay(p.FailureBackoffBase, s.failures, p.FailureBackoffMax))
}

func failureBackoffDelay(base time.Duration, failures int, max time.Duration) time.Duration {
	if failures <= 0 {
		return 0
	}
	if base <= 0 {
		return 0
	}

	delay := base
	for i := 1; i < failures; i++ {
		if delay > max/2 && max > 0 {
			delay = max
			break
		}
		delay *= 2
	}

	if max > 0 && delay > max {
		return max
	}
	return delay
}
