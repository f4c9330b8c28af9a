package sync

import (
	"context"
	"errors"
)

// Runner executes a single calculation pass.
type Runner interface {
	RunOnce(context.Context) (Summary, error)
}

var ErrNoConnectors = errors.New("no connectors are configured")

// ErrSyncAlreadyRunning is returned when another pass is already in progress.
var ErrSyncAlreadyRunning = errors.New("calculation is already running")

// ErrNoConnectorsDue is returned when every connector is deferred by the run
// policy and there is no work to do.
var ErrNoConnectorsDue = errors.New("no connectors are due to run")
