package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
)

// APIKey sends a static key, by default as "Authorization: Bearer <key>".
type APIKey struct {
	Field string
	// Header, when set, carries the raw key instead of the Authorization header.
	Header string
}

func (a APIKey) field() string { return orDefault(a.Field, FieldAPIKey) }

func (a APIKey) Scheme() connector.AuthScheme { return connector.AuthAPIKey }

func (a APIKey) RequiredFields() []string { return []string{a.field()} }

func (a APIKey) IsAuthenticated(creds *connector.Credentials, _ time.Time) bool {
	return creds.Get(a.field()) != ""
}

func (a APIKey) Authenticate(_ context.Context, creds *connector.Credentials) error {
	return requireFields(creds, a.field())
}

func (a APIKey) Apply(_ context.Context, req *http.Request, creds *connector.Credentials) error {
	if err := requireFields(creds, a.field()); err != nil {
		return err
	}
	key := creds.Get(a.field())
	if a.Header != "" {
		req.Header.Set(a.Header, key)
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+key)
	return nil
}

// Basic sends "Authorization: Basic base64(user:pass)".
type Basic struct {
	UsernameField string
	PasswordField string
}

func (b Basic) fields() (string, string) {
	return orDefault(b.UsernameField, FieldUsername), orDefault(b.PasswordField, FieldPassword)
}

func (b Basic) Scheme() connector.AuthScheme { return connector.AuthBasic }

func (b Basic) RequiredFields() []string {
	user, pass := b.fields()
	return []string{user, pass}
}

func (b Basic) IsAuthenticated(creds *connector.Credentials, _ time.Time) bool {
	return creds.HasAll(b.RequiredFields())
}

func (b Basic) Authenticate(_ context.Context, creds *connector.Credentials) error {
	return requireFields(creds, b.RequiredFields()...)
}

func (b Basic) Apply(_ context.Context, req *http.Request, creds *connector.Credentials) error {
	if err := requireFields(creds, b.RequiredFields()...); err != nil {
		return err
	}
	user, pass := b.fields()
	req.SetBasicAuth(creds.Get(user), creds.Get(pass))
	return nil
}
