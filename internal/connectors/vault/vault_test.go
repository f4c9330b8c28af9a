package vault

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestParseRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Ref
		wantErr bool
	}{
		{in: "vault:secret/connectors/octopus#api_key", want: Ref{Mount: "secret", Path: "connectors/octopus", Field: "api_key"}},
		{in: "  vault:/kv/xero/#client_secret ", want: Ref{Mount: "kv", Path: "xero", Field: "client_secret"}},
		{in: "vault:secret/octopus", wantErr: true},
		{in: "vault:secret#api_key", wantErr: true},
		{in: "vault:secret/octopus#", wantErr: true},
		{in: "plain-value", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseRef(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseRef(%q) expected error, got %+v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRef(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseRef(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if !IsRef("vault:a/b#c") || IsRef("sk_live_123") {
		t.Fatalf("IsRef mismatch")
	}
}

func TestVaultClientResolveKV2(t *testing.T) {
	t.Parallel()

	var reads atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Vault-Token"); got != "s.token" {
			t.Errorf("X-Vault-Token = %q", got)
		}
		if r.URL.Path != "/v1/secret/data/connectors/octopus" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		reads.Add(1)
		writeJSON(t, w, map[string]any{
			"data": map[string]any{
				"data": map[string]any{
					"api_key":    "sk_live_123",
					"account_no": 42,
				},
				"metadata": map[string]any{"version": 3},
			},
		})
	}))
	defer server.Close()

	client, err := New(Options{Address: server.URL, Token: "s.token"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := client.Resolve(context.Background(), "vault:secret/connectors/octopus#api_key")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "sk_live_123" {
		t.Fatalf("Resolve() = %q", got)
	}
	got, err = client.Resolve(context.Background(), "vault:secret/connectors/octopus#account_no")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "42" {
		t.Fatalf("Resolve() = %q, want 42", got)
	}
	if reads.Load() != 1 {
		t.Fatalf("secret reads = %d, want 1", reads.Load())
	}

	if _, err := client.Resolve(context.Background(), "vault:secret/connectors/octopus#missing"); err == nil {
		t.Fatalf("expected missing field error")
	}
}

func TestVaultClientResolveMissingSecret(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := New(Options{Address: server.URL, Token: "s.token"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.Resolve(context.Background(), "vault:secret/nope#api_key"); err == nil {
		t.Fatalf("expected error for missing secret")
	}
}

func TestVaultClientAppRoleLogin(t *testing.T) {
	t.Parallel()

	var loginCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth/platform-approle/login" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			t.Errorf("expected POST or PUT login method, got %s", r.Method)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode login body: %v", err)
			return
		}
		if body["role_id"] != "role-id" || body["secret_id"] != "secret-id" {
			t.Errorf("unexpected login body: %v", body)
		}
		loginCalled = true
		writeJSON(t, w, map[string]any{"auth": map[string]any{"client_token": "token-from-approle"}})
	}))
	defer server.Close()

	_, err := New(Options{
		Address:          server.URL,
		AuthType:         AuthTypeAppRole,
		AppRoleMountPath: "platform-approle",
		AppRoleRoleID:    "role-id",
		AppRoleSecretID:  "secret-id",
	})
	if err != nil {
		t.Fatalf("New(approle) error = %v", err)
	}
	if !loginCalled {
		t.Fatalf("expected approle login endpoint to be called")
	}
}

func TestNewRequiresTokenAndAddress(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{Token: "s.token"}); err == nil {
		t.Fatalf("expected error without address")
	}
	if _, err := New(Options{Address: "http://127.0.0.1:8200"}); err == nil {
		t.Fatalf("expected error without token")
	}
	if _, err := New(Options{Address: "http://127.0.0.1:8200", AuthType: "kerberos"}); err == nil {
		t.Fatalf("expected error for unsupported auth type")
	}
}

func TestVaultClientNamespaceHintForHCP(t *testing.T) {
	t.Parallel()

	client := &Client{
		namespace:   "",
		addressHost: "cluster.hashicorp.cloud",
	}
	err := client.withNamespaceHint(errors.New("permission denied"))
	if err == nil {
		t.Fatalf("expected wrapped error")
	}
	if !strings.Contains(err.Error(), `"admin"`) {
		t.Fatalf("expected namespace hint in error, got %q", err.Error())
	}

	client.namespace = "admin"
	err = client.withNamespaceHint(errors.New("permission denied"))
	if strings.Contains(err.Error(), `"admin"`) {
		t.Fatalf("did not expect namespace hint when namespace is set")
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, payload map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}
