// Package vault resolves connector credential references from a Vault KV v2
// secrets engine.
package vault

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"sync"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
)

const (
	AuthTypeToken   = "token"
	AuthTypeAppRole = "approle"

	// RefPrefix marks a credential value as a Vault reference:
	// vault:<mount>/<path>#<field>.
	RefPrefix = "vault:"
)

type Options struct {
	Address          string
	Namespace        string
	AuthType         string
	Token            string
	AppRoleMountPath string
	AppRoleRoleID    string
	AppRoleSecretID  string
	TLSSkipVerify    bool
	TLSCACertPEM     string
	Timeout          time.Duration
}

// Ref is a parsed secret reference.
type Ref struct {
	Mount string
	Path  string
	Field string
}

func (r Ref) String() string {
	return RefPrefix + r.Mount + "/" + r.Path + "#" + r.Field
}

// IsRef reports whether value is a Vault reference.
func IsRef(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), RefPrefix)
}

func ParseRef(value string) (Ref, error) {
	raw := strings.TrimSpace(value)
	if !strings.HasPrefix(raw, RefPrefix) {
		return Ref{}, fmt.Errorf("not a vault reference: %q", value)
	}
	raw = strings.TrimPrefix(raw, RefPrefix)
	location, field, ok := strings.Cut(raw, "#")
	if !ok || strings.TrimSpace(field) == "" {
		return Ref{}, fmt.Errorf("vault reference %q is missing #field", value)
	}
	mount, path, ok := strings.Cut(normalizeMountPath(location), "/")
	mount = normalizeMountPath(mount)
	path = normalizeMountPath(path)
	if !ok || mount == "" || path == "" {
		return Ref{}, fmt.Errorf("vault reference %q must be vault:<mount>/<path>#<field>", value)
	}
	return Ref{Mount: mount, Path: path, Field: strings.TrimSpace(field)}, nil
}

type Client struct {
	client      *vaultapi.Client
	namespace   string
	addressHost string

	mu    sync.Mutex
	cache map[string]map[string]any
}

func New(opts Options) (*Client, error) {
	address := strings.TrimSpace(opts.Address)
	if address == "" {
		return nil, errors.New("vault address is required")
	}
	authType := strings.ToLower(strings.TrimSpace(opts.AuthType))
	if authType == "" {
		authType = AuthTypeToken
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	cfg := vaultapi.DefaultConfig()
	cfg.Address = address
	cfg.HttpClient = &http.Client{
		Timeout:   timeout,
		Transport: buildHTTPTransport(opts.TLSSkipVerify, strings.TrimSpace(opts.TLSCACertPEM)),
	}
	addressHost := ""
	if parsed, err := neturl.Parse(address); err == nil {
		addressHost = strings.ToLower(strings.TrimSpace(parsed.Hostname()))
	}

	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client setup: %w", err)
	}
	namespace := strings.TrimSpace(opts.Namespace)
	if namespace != "" {
		client.SetNamespace(namespace)
	}

	switch authType {
	case AuthTypeToken:
		token := strings.TrimSpace(opts.Token)
		if token == "" {
			return nil, errors.New("vault token is required")
		}
		client.SetToken(token)
	case AuthTypeAppRole:
		roleID := strings.TrimSpace(opts.AppRoleRoleID)
		secretID := strings.TrimSpace(opts.AppRoleSecretID)
		mountPath := normalizeMountPath(opts.AppRoleMountPath)
		if mountPath == "" {
			mountPath = "approle"
		}
		if roleID == "" {
			return nil, errors.New("vault AppRole role ID is required")
		}
		if secretID == "" {
			return nil, errors.New("vault AppRole secret ID is required")
		}
		loginPath := "auth/" + mountPath + "/login"
		secret, err := client.Logical().Write(loginPath, map[string]any{
			"role_id":   roleID,
			"secret_id": secretID,
		})
		if err != nil {
			return nil, fmt.Errorf("vault approle login at %s: %w", loginPath, err)
		}
		if secret == nil || secret.Auth == nil || strings.TrimSpace(secret.Auth.ClientToken) == "" {
			return nil, errors.New("vault approle login succeeded without client token")
		}
		client.SetToken(secret.Auth.ClientToken)
	default:
		return nil, errors.New("vault auth type is invalid")
	}

	return &Client{
		client:      client,
		namespace:   namespace,
		addressHost: addressHost,
		cache:       make(map[string]map[string]any),
	}, nil
}

// Resolve returns the field named by a vault:<mount>/<path>#<field>
// reference. Each secret is read once per Client.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	parsed, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	data, err := c.readKV(ctx, parsed.Mount, parsed.Path)
	if err != nil {
		return "", err
	}
	raw, ok := data[parsed.Field]
	if !ok || raw == nil {
		return "", fmt.Errorf("vault secret %s/%s has no field %q", parsed.Mount, parsed.Path, parsed.Field)
	}
	value := strings.TrimSpace(fmt.Sprint(raw))
	if value == "" {
		return "", fmt.Errorf("vault secret %s/%s field %q is empty", parsed.Mount, parsed.Path, parsed.Field)
	}
	return value, nil
}

func (c *Client) readKV(ctx context.Context, mount, path string) (map[string]any, error) {
	key := mount + "/" + path
	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	secret, err := c.client.KVv2(mount).Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("vault read %s: %w", key, c.withNamespaceHint(err))
	}
	data := map[string]any{}
	if secret != nil && secret.Data != nil {
		data = secret.Data
	}

	c.mu.Lock()
	c.cache[key] = data
	c.mu.Unlock()
	return data, nil
}

func normalizeMountPath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}

func (c *Client) withNamespaceHint(err error) error {
	if err == nil {
		return nil
	}
	if strings.TrimSpace(c.namespace) != "" {
		return err
	}
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(c.addressHost)), ".hashicorp.cloud") {
		return err
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "permission denied") && !strings.Contains(msg, "403") {
		return err
	}
	return fmt.Errorf("%w (tip: set VAULT_NAMESPACE to \"admin\" for HCP Vault Dedicated)", err)
}

func buildHTTPTransport(skipVerify bool, caCertPEM string) http.RoundTripper {
	base, _ := http.DefaultTransport.(*http.Transport)
	if base == nil {
		return http.DefaultTransport
	}
	transport := base.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	} else {
		transport.TLSClientConfig = transport.TLSClientConfig.Clone()
	}
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12
	transport.TLSClientConfig.InsecureSkipVerify = skipVerify
	if strings.TrimSpace(caCertPEM) != "" {
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM([]byte(caCertPEM)) {
			transport.TLSClientConfig.RootCAs = pool
		}
	}
	return transport
}
