// Package configstore decodes and validates connector instance configuration.
package configstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/vault"
)

// IntegrationConfig describes one connector instance.
type IntegrationConfig struct {
	ID             string
	OrganizationID string
	Kind           string
	Name           string
	// BaseURL overrides the provider's default endpoint.
	BaseURL string
	// RequiredCredentials overrides the provider's required fields.
	RequiredCredentials []string
	Credentials         map[string]string
	Enabled             bool
	RequestsPerSecond   float64
	Burst               int
}

func (c IntegrationConfig) Normalized() IntegrationConfig {
	out := c
	out.ID = strings.TrimSpace(out.ID)
	out.OrganizationID = strings.TrimSpace(out.OrganizationID)
	out.Kind = strings.ToLower(strings.TrimSpace(out.Kind))
	out.Name = strings.TrimSpace(out.Name)
	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")

	var required []string
	for _, f := range out.RequiredCredentials {
		f = strings.TrimSpace(f)
		if f != "" && !slices.Contains(required, f) {
			required = append(required, f)
		}
	}
	out.RequiredCredentials = required

	creds := make(map[string]string, len(c.Credentials))
	for k, v := range c.Credentials {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		creds[k] = strings.TrimSpace(v)
	}
	out.Credentials = creds
	return out
}

func (c IntegrationConfig) Validate() error {
	c = c.Normalized()
	if c.ID == "" {
		return errors.New("connector id is required")
	}
	if c.Kind == "" {
		return fmt.Errorf("connector %s: kind is required", c.ID)
	}
	if c.BaseURL != "" {
		parsed, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("connector %s: base_url is invalid", c.ID)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("connector %s: base_url must use http or https", c.ID)
		}
		if strings.TrimSpace(parsed.Hostname()) == "" {
			return fmt.Errorf("connector %s: base_url host is required", c.ID)
		}
	}
	if c.RequestsPerSecond < 0 || math.IsNaN(c.RequestsPerSecond) || math.IsInf(c.RequestsPerSecond, 0) {
		return fmt.Errorf("connector %s: requests_per_second must be a non-negative number", c.ID)
	}
	if c.Burst < 0 {
		return fmt.Errorf("connector %s: burst must not be negative", c.ID)
	}
	return nil
}

// DisplayName is the configured name, falling back to the id.
func (c IntegrationConfig) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return strings.TrimSpace(c.ID)
}

// SecretResolver turns a secret reference into its value.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// SecretRefs lists the credential fields holding secret references.
func (c IntegrationConfig) SecretRefs() []string {
	var fields []string
	for k, v := range c.Credentials {
		if vault.IsRef(v) {
			fields = append(fields, k)
		}
	}
	slices.Sort(fields)
	return fields
}

// ResolveSecrets returns a copy of cfg with every secret reference replaced
// by its value. It fails when references are present and resolver is nil.
func ResolveSecrets(ctx context.Context, cfg IntegrationConfig, resolver SecretResolver) (IntegrationConfig, error) {
	refs := cfg.SecretRefs()
	if len(refs) == 0 {
		return cfg, nil
	}
	if resolver == nil {
		return IntegrationConfig{}, fmt.Errorf("connector %s: credentials %s reference a secret backend but none is configured", cfg.ID, strings.Join(refs, ", "))
	}

	out := cfg
	out.Credentials = make(map[string]string, len(cfg.Credentials))
	for k, v := range cfg.Credentials {
		out.Credentials[k] = v
	}
	for _, field := range refs {
		value, err := resolver.Resolve(ctx, cfg.Credentials[field])
		if err != nil {
			return IntegrationConfig{}, fmt.Errorf("connector %s: resolve credential %s: %w", cfg.ID, field, err)
		}
		out.Credentials[field] = value
	}
	return out, nil
}

// VaultConfig selects the optional secret backend.
type VaultConfig struct {
	Address   string
	Namespace string
	Token     string
}

func (c VaultConfig) Normalized() VaultConfig {
	return VaultConfig{
		Address:   strings.TrimRight(strings.TrimSpace(c.Address), "/"),
		Namespace: strings.TrimSpace(c.Namespace),
		Token:     strings.TrimSpace(c.Token),
	}
}

// Configured reports whether an address was supplied.
func (c VaultConfig) Configured() bool {
	return c.Normalized().Address != ""
}

func (c VaultConfig) Validate() error {
	c = c.Normalized()
	if c.Address == "" {
		return errors.New("Vault address is required")
	}
	parsed, err := url.Parse(c.Address)
	if err != nil {
		return errors.New("Vault address is invalid")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("Vault address must use http or https")
	}
	if strings.TrimSpace(parsed.Hostname()) == "" {
		return errors.New("Vault address host is required")
	}
	if c.Token == "" {
		return errors.New("Vault token is required")
	}
	return nil
}

// NewVaultResolver builds a resolver from cfg. It returns nil, nil when no
// backend is configured.
func NewVaultResolver(cfg VaultConfig) (SecretResolver, error) {
	if !cfg.Configured() {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Normalized()
	client, err := vault.New(vault.Options{
		Address:   cfg.Address,
		Namespace: cfg.Namespace,
		AuthType:  vault.AuthTypeToken,
		Token:     cfg.Token,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func stringifyCredential(key string, raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	default:
		return "", fmt.Errorf("credential %s must be a string or number, got %T", key, raw)
	}
}
