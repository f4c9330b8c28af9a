package configstore

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvDefaultsPrefix overrides manifest defaults from the environment, e.g.
// CARBONSYNC_DEFAULTS__REQUESTS_PER_SECOND=2.
const EnvDefaultsPrefix = "CARBONSYNC_DEFAULTS__"

// Defaults apply to every connector that does not set its own value.
type Defaults struct {
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

func DefaultSettings() Defaults {
	return Defaults{RequestsPerSecond: 5, Burst: 5}
}

type defaultsDoc struct {
	Defaults Defaults `koanf:"defaults"`
}

type manifestDoc struct {
	Defaults   Defaults            `koanf:"defaults"`
	Connectors []manifestConnector `koanf:"connectors"`
}

type manifestConnector struct {
	ID                  string         `koanf:"id"`
	OrganizationID      string         `koanf:"organization_id"`
	Kind                string         `koanf:"kind"`
	Name                string         `koanf:"name"`
	BaseURL             string         `koanf:"base_url"`
	RequiredCredentials []string       `koanf:"required_credentials"`
	Credentials         map[string]any `koanf:"credentials"`
	Enabled             *bool          `koanf:"enabled"`
	RequestsPerSecond   float64        `koanf:"requests_per_second"`
	Burst               int            `koanf:"burst"`
}

// Manifest is a decoded connector manifest.
type Manifest struct {
	Defaults   Defaults
	Connectors []IntegrationConfig
}

// Enabled returns the connectors not switched off with enabled = false.
func (m Manifest) Enabled() []IntegrationConfig {
	out := make([]IntegrationConfig, 0, len(m.Connectors))
	for _, c := range m.Connectors {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// LoadManifest reads a TOML manifest of [[connectors]] tables.
func LoadManifest(path string) (Manifest, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Manifest{}, errors.New("connector manifest path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return Manifest{}, fmt.Errorf("connector manifest: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultsDoc{Defaults: DefaultSettings()}, "koanf"), nil); err != nil {
		return Manifest{}, fmt.Errorf("load manifest defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return Manifest{}, fmt.Errorf("parse connector manifest %s: %w", path, err)
	}
	if err := k.Load(env.Provider(EnvDefaultsPrefix, ".", func(s string) string {
		return "defaults." + strings.ToLower(strings.TrimPrefix(s, EnvDefaultsPrefix))
	}), nil); err != nil {
		return Manifest{}, fmt.Errorf("load manifest env overrides: %w", err)
	}

	var doc manifestDoc
	if err := k.Unmarshal("", &doc); err != nil {
		return Manifest{}, fmt.Errorf("decode connector manifest %s: %w", path, err)
	}
	return buildManifest(doc)
}

func buildManifest(doc manifestDoc) (Manifest, error) {
	m := Manifest{Defaults: doc.Defaults}
	seen := make(map[string]struct{}, len(doc.Connectors))
	var errs []error
	for i, raw := range doc.Connectors {
		cfg, err := raw.toConfig(doc.Defaults)
		if err != nil {
			errs = append(errs, fmt.Errorf("connectors[%d]: %w", i, err))
			continue
		}
		if err := cfg.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("connectors[%d]: %w", i, err))
			continue
		}
		if _, dup := seen[cfg.ID]; dup {
			errs = append(errs, fmt.Errorf("connectors[%d]: duplicate connector id %q", i, cfg.ID))
			continue
		}
		seen[cfg.ID] = struct{}{}
		m.Connectors = append(m.Connectors, cfg)
	}
	if len(errs) > 0 {
		return Manifest{}, errors.Join(errs...)
	}
	return m, nil
}

func (r manifestConnector) toConfig(defaults Defaults) (IntegrationConfig, error) {
	creds := make(map[string]string, len(r.Credentials))
	for k, v := range r.Credentials {
		s, err := stringifyCredential(k, v)
		if err != nil {
			return IntegrationConfig{}, err
		}
		creds[k] = s
	}
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	rps := r.RequestsPerSecond
	if rps == 0 {
		rps = defaults.RequestsPerSecond
	}
	burst := r.Burst
	if burst == 0 {
		burst = defaults.Burst
	}
	return IntegrationConfig{
		ID:                  r.ID,
		OrganizationID:      r.OrganizationID,
		Kind:                r.Kind,
		Name:                r.Name,
		BaseURL:             r.BaseURL,
		RequiredCredentials: r.RequiredCredentials,
		Credentials:         creds,
		Enabled:             enabled,
		RequestsPerSecond:   rps,
		Burst:               burst,
	}.Normalized(), nil
}
