package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
)

// Default credential field names.
const (
	FieldAPIKey          = "api_key"
	FieldUsername        = "username"
	FieldPassword        = "password"
	FieldClientID        = "client_id"
	FieldClientSecret    = "client_secret"
	FieldAccessKeyID     = "access_key_id"
	FieldSecretAccessKey = "secret_access_key"
	FieldSessionToken    = "session_token"
	FieldRegion          = "region"
)

// Strategy is one authentication scheme. Static schemes are authenticated
// while their fields are present; token schemes while a token is present and
// unexpired.
type Strategy interface {
	Scheme() connector.AuthScheme
	// RequiredFields lists the credential fields the scheme reads.
	RequiredFields() []string
	IsAuthenticated(creds *connector.Credentials, now time.Time) bool
	Authenticate(ctx context.Context, creds *connector.Credentials) error
	// Apply adds authentication to an outbound request.
	Apply(ctx context.Context, req *http.Request, creds *connector.Credentials) error
}

func requireFields(creds *connector.Credentials, fields ...string) error {
	if missing := creds.Missing(fields); len(missing) > 0 {
		return fmt.Errorf("%w: %s", connector.ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// ExpandTemplate replaces {field} placeholders with path-escaped credential
// values, e.g. "https://login.microsoftonline.com/{tenant_id}/oauth2/v2.0/token".
func ExpandTemplate(tpl string, creds *connector.Credentials) (string, error) {
	var b strings.Builder
	rest := tpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("unterminated placeholder in %q", tpl)
		}
		field := rest[open+1 : open+end]
		value := creds.Get(field)
		if value == "" {
			return "", fmt.Errorf("%w: %s", connector.ErrMissingCredentials, field)
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		rest = rest[open+end+1:]
	}
}

// TemplateFields returns the placeholder names used in tpl.
func TemplateFields(tpl string) []string {
	var fields []string
	rest := tpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return fields
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return fields
		}
		fields = append(fields, rest[open+1:open+end])
		rest = rest[open+end+1:]
	}
}
