package registry

import (
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/configstore"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
)

// ConnectorDefinition defines the behavior and metadata for a provider kind.
type ConnectorDefinition interface {
	// Identity
	Kind() string        // e.g., "octopus_energy", "xero"
	DisplayName() string // e.g., "Octopus Energy", "Xero"

	// Info describes the provider before any instance exists.
	Info() connector.Info

	// NewInstance builds a connector from validated instance configuration.
	// Secret references must already be resolved.
	NewInstance(cfg configstore.IntegrationConfig, opts connector.Options) (connector.Instance, error)
}
