package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/configstore"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/emissions"
)

var (
	ErrUnknownKind      = errors.New("unknown connector kind")
	ErrUnknownConnector = errors.New("unknown connector")
)

// ConnectorRegistry holds provider definitions by kind and live connector
// instances by id.
type ConnectorRegistry struct {
	definitions map[string]ConnectorDefinition
	order       []string // Display order

	mu            sync.RWMutex
	instances     map[string]connector.Instance
	instanceOrder []string
}

// NewRegistry creates a new connector registry.
func NewRegistry() *ConnectorRegistry {
	return &ConnectorRegistry{
		definitions: make(map[string]ConnectorDefinition),
		order:       make([]string, 0),
		instances:   make(map[string]connector.Instance),
	}
}

// Register adds a connector definition to the registry.
func (r *ConnectorRegistry) Register(def ConnectorDefinition) error {
	kind := strings.ToLower(strings.TrimSpace(def.Kind()))
	if kind == "" {
		return fmt.Errorf("connector kind cannot be empty")
	}
	if _, exists := r.definitions[kind]; exists {
		return fmt.Errorf("connector kind %q already registered", kind)
	}
	r.definitions[kind] = def
	r.order = append(r.order, kind)
	return nil
}

// Get retrieves a connector definition by kind.
func (r *ConnectorRegistry) Get(kind string) (ConnectorDefinition, bool) {
	def, ok := r.definitions[strings.ToLower(strings.TrimSpace(kind))]
	return def, ok
}

// All returns all registered connector definitions in order.
func (r *ConnectorRegistry) All() []ConnectorDefinition {
	defs := make([]ConnectorDefinition, 0, len(r.order))
	for _, kind := range r.order {
		defs = append(defs, r.definitions[kind])
	}
	return defs
}

// AddInstance builds a connector for cfg and tracks it under cfg.ID.
func (r *ConnectorRegistry) AddInstance(cfg configstore.IntegrationConfig, opts connector.Options) (connector.Instance, error) {
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	def, ok := r.Get(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("connector %s: %w %q", cfg.ID, ErrUnknownKind, cfg.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.instances[cfg.ID]; exists {
		return nil, fmt.Errorf("connector id %q already registered", cfg.ID)
	}
	inst, err := def.NewInstance(cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("connector %s: %w", cfg.ID, err)
	}
	r.instances[cfg.ID] = inst
	r.instanceOrder = append(r.instanceOrder, cfg.ID)
	return inst, nil
}

// Instance returns the live connector with the given id.
func (r *ConnectorRegistry) Instance(id string) (connector.Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[strings.TrimSpace(id)]
	return inst, ok
}

// Instances returns every live connector in registration order.
func (r *ConnectorRegistry) Instances() []connector.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]connector.Instance, 0, len(r.instanceOrder))
	for _, id := range r.instanceOrder {
		out = append(out, r.instances[id])
	}
	return out
}

func (r *ConnectorRegistry) Snapshots() []connector.Snapshot {
	instances := r.Instances()
	out := make([]connector.Snapshot, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.Snapshot())
	}
	return out
}

// GetEmissions returns the emissions of one connector regardless of its
// provider family.
func (r *ConnectorRegistry) GetEmissions(ctx context.Context, id string) (emissions.Result, error) {
	inst, ok := r.Instance(id)
	if !ok {
		return emissions.Result{}, fmt.Errorf("%w %q", ErrUnknownConnector, id)
	}
	return inst.GetEmissions(ctx)
}

// Authenticate runs one connector's authentication and returns its status.
func (r *ConnectorRegistry) Authenticate(ctx context.Context, id string) (connector.Status, error) {
	inst, ok := r.Instance(id)
	if !ok {
		return connector.Status{}, fmt.Errorf("%w %q", ErrUnknownConnector, id)
	}
	inst.Authenticate(ctx)
	return inst.Status(), nil
}
