package connector

import (
	"context"
	"slices"
	"time"

	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/emissions"
)

type AuthScheme string

const (
	AuthAPIKey                 AuthScheme = "api_key"
	AuthBasic                  AuthScheme = "basic"
	AuthOAuthClientCredentials AuthScheme = "oauth_client_credentials"
	AuthSigV4                  AuthScheme = "sigv4"
)

// TokenBased reports whether the scheme authenticates with an expiring token
// rather than static credentials.
func (s AuthScheme) TokenBased() bool {
	return s == AuthOAuthClientCredentials || s == AuthSigV4
}

// Info is the provider identity of one connector instance.
type Info struct {
	Kind                string           `json:"kind"`
	DisplayName         string           `json:"display_name"`
	BaseURL             string           `json:"base_url"`
	Family              emissions.Family `json:"family"`
	Auth                AuthScheme       `json:"auth"`
	RequiredCredentials []string         `json:"required_credentials"`
}

func (i Info) Clone() Info {
	out := i
	out.RequiredCredentials = slices.Clone(i.RequiredCredentials)
	return out
}

// Provider is the capability set a concrete provider supplies: identity, the
// wire-level authenticate and fetch calls, and the emissions formula over its
// record type R. Lifecycle handling lives in Connector.
type Provider[R any] interface {
	Info() Info
	IsAuthenticated(creds *Credentials, now time.Time) bool
	Authenticate(ctx context.Context, creds *Credentials) error
	Fetch(ctx context.Context, creds *Credentials) ([]R, error)
	Derive(records []R, now time.Time) (emissions.Result, error)
}
