package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultTokenTTL = time.Hour

// OAuthClientCredentials exchanges a client id/secret pair for a bearer token
// and writes access_token / expires_at back into the credential bag.
type OAuthClientCredentials struct {
	// TokenURL may contain {field} placeholders filled from credentials.
	TokenURL string
	Scopes   []string
	// AuthStyle defaults to sending the client id and secret in the form body.
	AuthStyle         oauth2.AuthStyle
	ClientIDField     string
	ClientSecretField string
	HTTPClient        *http.Client
	Now               func() time.Time
}

func (o *OAuthClientCredentials) fields() (string, string) {
	return orDefault(o.ClientIDField, FieldClientID), orDefault(o.ClientSecretField, FieldClientSecret)
}

func (o *OAuthClientCredentials) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *OAuthClientCredentials) Scheme() connector.AuthScheme {
	return connector.AuthOAuthClientCredentials
}

func (o *OAuthClientCredentials) RequiredFields() []string {
	id, secret := o.fields()
	return append([]string{id, secret}, TemplateFields(o.TokenURL)...)
}

func (o *OAuthClientCredentials) IsAuthenticated(creds *connector.Credentials, now time.Time) bool {
	return creds.HasValidToken(now)
}

func (o *OAuthClientCredentials) Authenticate(ctx context.Context, creds *connector.Credentials) error {
	if err := requireFields(creds, o.RequiredFields()...); err != nil {
		return err
	}
	tokenURL, err := ExpandTemplate(o.TokenURL, creds)
	if err != nil {
		return err
	}
	if strings.TrimSpace(tokenURL) == "" {
		return errors.New("oauth token url is required")
	}

	style := o.AuthStyle
	if style == oauth2.AuthStyleAutoDetect {
		style = oauth2.AuthStyleInParams
	}
	idField, secretField := o.fields()
	cfg := clientcredentials.Config{
		ClientID:     creds.Get(idField),
		ClientSecret: creds.Get(secretField),
		TokenURL:     tokenURL,
		Scopes:       o.Scopes,
		AuthStyle:    style,
	}
	if o.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.HTTPClient)
	}

	tok, err := cfg.Token(ctx)
	if err != nil {
		return classifyTokenError(err)
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return errors.New("token response missing access_token")
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = o.now().Add(defaultTokenTTL)
	}
	creds.SetToken(tok.AccessToken, expiresAt)
	return nil
}

func (o *OAuthClientCredentials) Apply(_ context.Context, req *http.Request, creds *connector.Credentials) error {
	token := creds.AccessToken()
	if token == "" {
		return fmt.Errorf("%w: no access token", connector.ErrAuthenticationRequired)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// classifyTokenError marks rejected client credentials as non-retryable.
func classifyTokenError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return fmt.Errorf("token request failed: %w", err)
	}

	msg := re.Response.Status
	if code := strings.TrimSpace(re.ErrorCode); code != "" {
		msg += ": " + code
		if desc := strings.TrimSpace(re.ErrorDescription); desc != "" {
			msg += " (" + desc + ")"
		}
	}
	switch re.Response.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: token request rejected: %s", connector.ErrInvalidCredentials, msg)
	default:
		return fmt.Errorf("token request failed: %s", msg)
	}
}
