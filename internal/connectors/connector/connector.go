package connector

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/emissions"
)

// Identity names one connector instance.
type Identity struct {
	ID             string
	OrganizationID string
	Name           string
}

type Options struct {
	Now    func() time.Time
	Logger *slog.Logger
	// OnStatus is called after every status transition. It runs on the
	// goroutine performing the operation and must not call back into the
	// connector.
	OnStatus func(id string, info Info, prev, next Status)
}

// RawData is the result of the last successful fetch. It is replaced
// wholesale, never merged.
type RawData[R any] struct {
	Records   []R
	FetchedAt time.Time
}

// Snapshot is a read-only view of one connector's state.
type Snapshot struct {
	ID               string            `json:"id"`
	OrganizationID   string            `json:"organization_id,omitempty"`
	Name             string            `json:"name,omitempty"`
	Info             Info              `json:"provider"`
	Status           Status            `json:"status"`
	CredentialFields []string          `json:"credential_fields"`
	Records          int               `json:"records"`
	FetchedAt        *time.Time        `json:"fetched_at,omitempty"`
	Result           *emissions.Result `json:"emissions,omitempty"`
}

// Instance is the uniform, record-type-agnostic surface of a connector.
type Instance interface {
	ID() string
	Info() Info
	Status() Status
	Authenticate(ctx context.Context) bool
	Refresh(ctx context.Context) (int, error)
	CalculateEmissions() (emissions.Result, error)
	GetEmissions(ctx context.Context) (emissions.Result, error)
	Invalidate()
	Snapshot() Snapshot
}

// Connector drives one provider through authenticate, fetch and derive.
//
// Operations on one Connector are serialized; separate Connectors share no
// mutable state and can be driven concurrently.
type Connector[R any] struct {
	ident    Identity
	provider Provider[R]
	creds    *Credentials
	status   *StatusMachine
	now      func() time.Time
	logger   *slog.Logger

	opMu sync.Mutex

	mu     sync.RWMutex
	raw    *RawData[R]
	result *emissions.Result
}

var _ Instance = (*Connector[emissions.UtilityReading])(nil)

func New[R any](ident Identity, provider Provider[R], creds *Credentials, opts Options) *Connector[R] {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if creds == nil {
		creds = NewCredentials(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	info := provider.Info()
	logger = logger.With("connector_id", ident.ID, "kind", info.Kind)

	c := &Connector[R]{
		ident:    ident,
		provider: provider,
		creds:    creds,
		now:      now,
		logger:   logger,
	}
	c.status = NewStatusMachine(now, func(prev, next Status) {
		logger.Debug("connector status changed", "from", prev.State, "to", next.State, "message", next.Message)
		if opts.OnStatus != nil {
			opts.OnStatus(ident.ID, info, prev, next)
		}
	})
	return c
}

func (c *Connector[R]) ID() string { return c.ident.ID }

func (c *Connector[R]) Info() Info { return c.provider.Info().Clone() }

func (c *Connector[R]) Status() Status { return c.status.Current() }

// Credentials exposes the connector's credential bag.
func (c *Connector[R]) Credentials() *Credentials { return c.creds }

// IsAuthenticated applies the provider's check against the current time.
func (c *Connector[R]) IsAuthenticated() bool {
	return c.provider.IsAuthenticated(c.creds, c.now())
}

// Authenticate performs the provider's credential check or token exchange.
// Failures are recorded in Status and reported only through the return value.
func (c *Connector[R]) Authenticate(ctx context.Context) bool {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.authenticate(ctx)
}

func (c *Connector[R]) authenticate(ctx context.Context) bool {
	c.status.Set(StateAuthenticating, "")

	info := c.provider.Info()
	if missing := c.creds.Missing(info.RequiredCredentials); len(missing) > 0 {
		err := fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
		c.logger.Warn("connector authentication failed", "err", err)
		c.status.Fail(err)
		return false
	}
	if err := c.provider.Authenticate(ctx, c.creds); err != nil {
		err = fmt.Errorf("%s authentication failed: %w", info.DisplayName, err)
		c.logger.Warn("connector authentication failed", "err", err)
		c.status.Fail(err)
		return false
	}
	if !c.provider.IsAuthenticated(c.creds, c.now()) {
		c.status.Fail(fmt.Errorf("%w: %s issued no usable credentials", ErrInvalidCredentials, info.DisplayName))
		return false
	}
	c.status.Set(StateConnected, "")
	return true
}

// FetchData retrieves records from the provider, authenticating first when
// needed. On success RawData is replaced and the memoized result dropped; on
// failure RawData is left untouched and the error is returned.
func (c *Connector[R]) FetchData(ctx context.Context) ([]R, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.fetch(ctx)
}

func (c *Connector[R]) fetch(ctx context.Context) ([]R, error) {
	if !c.provider.IsAuthenticated(c.creds, c.now()) {
		if !c.authenticate(ctx) {
			return nil, fmt.Errorf("%w: %s", ErrAuthenticationRequired, c.status.Current().Message)
		}
	}

	start := c.now()
	records, err := c.provider.Fetch(ctx, c.creds)
	if err != nil {
		c.logger.Error("connector fetch failed", "err", err)
		c.status.Fail(err)
		return nil, err
	}
	if records == nil {
		records = []R{}
	}

	c.mu.Lock()
	c.raw = &RawData[R]{Records: records, FetchedAt: c.now()}
	c.result = nil
	c.mu.Unlock()

	if c.status.Current().State != StateConnected {
		c.status.Set(StateConnected, "")
	}
	c.logger.Debug("connector fetch complete", "records", len(records), "duration", c.now().Sub(start))
	return slices.Clone(records), nil
}

// Refresh is FetchData for callers that do not know the record type.
func (c *Connector[R]) Refresh(ctx context.Context) (int, error) {
	records, err := c.FetchData(ctx)
	return len(records), err
}

// CalculateEmissions derives emissions from the last fetched data. It never
// fetches; without data it returns ErrNoData.
func (c *Connector[R]) CalculateEmissions() (emissions.Result, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.calculate()
}

func (c *Connector[R]) calculate() (emissions.Result, error) {
	c.mu.RLock()
	raw := c.raw
	c.mu.RUnlock()
	if raw == nil {
		return emissions.Result{}, ErrNoData
	}

	result, err := c.provider.Derive(raw.Records, c.now())
	if err != nil {
		err = fmt.Errorf("derive emissions: %w", err)
		c.status.Fail(err)
		return emissions.Result{}, err
	}

	stored := result.Clone()
	c.mu.Lock()
	c.result = &stored
	c.mu.Unlock()
	return result, nil
}

// GetEmissions returns the memoized result, computing it once when absent.
// A connector that has never fetched fetches first.
func (c *Connector[R]) GetEmissions(ctx context.Context) (emissions.Result, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.RLock()
	cached := c.result
	hasData := c.raw != nil
	c.mu.RUnlock()
	if cached != nil {
		return cached.Clone(), nil
	}
	if !hasData {
		if _, err := c.fetch(ctx); err != nil {
			return emissions.Result{}, err
		}
	}
	return c.calculate()
}

// Invalidate drops the memoized result so the next GetEmissions recomputes it
// from the data already fetched.
func (c *Connector[R]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = nil
}

// Raw returns the last fetched data, or nil.
func (c *Connector[R]) Raw() *RawData[R] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.raw == nil {
		return nil
	}
	return &RawData[R]{Records: slices.Clone(c.raw.Records), FetchedAt: c.raw.FetchedAt}
}

func (c *Connector[R]) Snapshot() Snapshot {
	snap := Snapshot{
		ID:               c.ident.ID,
		OrganizationID:   c.ident.OrganizationID,
		Name:             c.ident.Name,
		Info:             c.Info(),
		Status:           c.status.Current(),
		CredentialFields: c.creds.Fields(),
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.raw != nil {
		fetchedAt := c.raw.FetchedAt
		snap.Records = len(c.raw.Records)
		snap.FetchedAt = &fetchedAt
	}
	if c.result != nil {
		r := c.result.Clone()
		snap.Result = &r
	}
	return snap
}
