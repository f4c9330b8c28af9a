package configstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "connectors.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
[defaults]
requests_per_second = 2.5

[[connectors]]
id = "octopus-hq"
organization_id = "org-1"
kind = "Octopus_Energy"
name = "HQ electricity"

[connectors.credentials]
api_key = "sk_live_123"
account_number = 12345678

[[connectors]]
id = "aws-prod"
kind = "aws_cost_explorer"
base_url = "https://ce.eu-west-2.amazonaws.com/"
enabled = false
burst = 9

[connectors.credentials]
access_key_id = "AKID"
secret_access_key = "vault:secret/aws#secret_access_key"
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if len(m.Connectors) != 2 {
		t.Fatalf("connectors = %d, want 2", len(m.Connectors))
	}

	hq := m.Connectors[0]
	if hq.ID != "octopus-hq" || hq.Kind != "octopus_energy" || hq.OrganizationID != "org-1" {
		t.Fatalf("unexpected first connector: %+v", hq)
	}
	if hq.Credentials["account_number"] != "12345678" {
		t.Fatalf("numeric credential = %q, want 12345678", hq.Credentials["account_number"])
	}
	if !hq.Enabled {
		t.Fatalf("connectors are enabled by default")
	}
	if hq.RequestsPerSecond != 2.5 || hq.Burst != 5 {
		t.Fatalf("defaults not applied: rps=%v burst=%d", hq.RequestsPerSecond, hq.Burst)
	}
	if hq.DisplayName() != "HQ electricity" {
		t.Fatalf("DisplayName() = %q", hq.DisplayName())
	}

	aws := m.Connectors[1]
	if aws.Enabled {
		t.Fatalf("expected aws-prod to be disabled")
	}
	if aws.BaseURL != "https://ce.eu-west-2.amazonaws.com" {
		t.Fatalf("BaseURL = %q", aws.BaseURL)
	}
	if aws.Burst != 9 {
		t.Fatalf("Burst = %d, want 9", aws.Burst)
	}
	if got := aws.SecretRefs(); len(got) != 1 || got[0] != "secret_access_key" {
		t.Fatalf("SecretRefs() = %v", got)
	}
	if enabled := m.Enabled(); len(enabled) != 1 || enabled[0].ID != "octopus-hq" {
		t.Fatalf("Enabled() = %+v", enabled)
	}
}

func TestLoadManifestEnvOverridesDefaults(t *testing.T) {
	t.Setenv(EnvDefaultsPrefix+"REQUESTS_PER_SECOND", "0.5")
	path := writeManifest(t, `
[[connectors]]
id = "samsara-fleet"
kind = "samsara"
[connectors.credentials]
api_key = "k"
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if m.Defaults.RequestsPerSecond != 0.5 {
		t.Fatalf("Defaults.RequestsPerSecond = %v, want 0.5", m.Defaults.RequestsPerSecond)
	}
	if m.Connectors[0].RequestsPerSecond != 0.5 {
		t.Fatalf("connector rps = %v, want 0.5", m.Connectors[0].RequestsPerSecond)
	}
}

func TestLoadManifestRejectsInvalidEntries(t *testing.T) {
	path := writeManifest(t, `
[[connectors]]
id = "dup"
kind = "xero"

[[connectors]]
id = "dup"
kind = "xero"

[[connectors]]
id = "no-kind"

[[connectors]]
id = "bad-url"
kind = "xero"
base_url = "ftp://example.com"
`)

	_, err := LoadManifest(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"duplicate connector id", "kind is required", "http or https"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing manifest")
	}
	if _, err := LoadManifest(" "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}

func TestIntegrationConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  IntegrationConfig
		wantErr bool
	}{
		{name: "valid", config: IntegrationConfig{ID: "a", Kind: "xero"}},
		{name: "missing id", config: IntegrationConfig{Kind: "xero"}, wantErr: true},
		{name: "missing kind", config: IntegrationConfig{ID: "a"}, wantErr: true},
		{name: "negative rps", config: IntegrationConfig{ID: "a", Kind: "xero", RequestsPerSecond: -1}, wantErr: true},
		{name: "base url without host", config: IntegrationConfig{ID: "a", Kind: "xero", BaseURL: "https://"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.config.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestNormalizedDedupesRequiredCredentials(t *testing.T) {
	t.Parallel()

	cfg := IntegrationConfig{
		RequiredCredentials: []string{" api_key", "api_key", "", "account"},
		Credentials:         map[string]string{" api_key ": " k ", "": "dropped"},
	}.Normalized()
	if len(cfg.RequiredCredentials) != 2 || cfg.RequiredCredentials[0] != "api_key" || cfg.RequiredCredentials[1] != "account" {
		t.Fatalf("RequiredCredentials = %v", cfg.RequiredCredentials)
	}
	if len(cfg.Credentials) != 1 || cfg.Credentials["api_key"] != "k" {
		t.Fatalf("Credentials = %v", cfg.Credentials)
	}
}

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := f[ref]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestResolveSecrets(t *testing.T) {
	t.Parallel()

	cfg := IntegrationConfig{
		ID:   "aws-prod",
		Kind: "aws_cost_explorer",
		Credentials: map[string]string{
			"access_key_id":     "AKID",
			"secret_access_key": "vault:secret/aws#secret_access_key",
		},
	}

	resolved, err := ResolveSecrets(context.Background(), cfg, fakeResolver{
		"vault:secret/aws#secret_access_key": "shh",
	})
	if err != nil {
		t.Fatalf("ResolveSecrets() error = %v", err)
	}
	if resolved.Credentials["secret_access_key"] != "shh" || resolved.Credentials["access_key_id"] != "AKID" {
		t.Fatalf("resolved credentials = %v", resolved.Credentials)
	}
	if cfg.Credentials["secret_access_key"] != "vault:secret/aws#secret_access_key" {
		t.Fatalf("input config must not be mutated")
	}

	if _, err := ResolveSecrets(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error without resolver")
	}
	if _, err := ResolveSecrets(context.Background(), cfg, fakeResolver{}); err == nil {
		t.Fatalf("expected error when resolver fails")
	}

	plain := IntegrationConfig{ID: "x", Credentials: map[string]string{"api_key": "k"}}
	if got, err := ResolveSecrets(context.Background(), plain, nil); err != nil || got.Credentials["api_key"] != "k" {
		t.Fatalf("plain config = %+v, %v", got, err)
	}
}

func TestVaultConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  VaultConfig
		wantErr bool
	}{
		{name: "valid", config: VaultConfig{Address: "https://vault.example.com", Token: "s.test"}},
		{name: "missing token", config: VaultConfig{Address: "https://vault.example.com"}, wantErr: true},
		{name: "missing address", config: VaultConfig{Token: "s.test"}, wantErr: true},
		{name: "bad scheme", config: VaultConfig{Address: "tcp://vault.example.com", Token: "s.test"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.config.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestNewVaultResolverUnconfigured(t *testing.T) {
	t.Parallel()

	r, err := NewVaultResolver(VaultConfig{})
	if err != nil || r != nil {
		t.Fatalf("NewVaultResolver() = %v, %v; want nil, nil", r, err)
	}
	if _, err := NewVaultResolver(VaultConfig{Address: "https://vault.example.com"}); err == nil {
		t.Fatalf("expected error for address without token")
	}
}
