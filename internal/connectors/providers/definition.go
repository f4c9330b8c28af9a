// Package providers turns the declarative provider table into connector
// definitions. Every provider shares one fetch path: authenticate with the
// table's scheme, GET one JSON endpoint, decode the family's record shape and
// apply the family's formula.
package providers

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/auth"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/configstore"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/emissions"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/registry"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/upstream"
)

type Definition struct {
	spec       Spec
	httpClient *http.Client
	now        func() time.Time
}

var _ registry.ConnectorDefinition = (*Definition)(nil)

type Option func(*Definition)

// WithHTTPClient shares one HTTP client between token exchanges and fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Definition) { d.httpClient = c }
}

func WithClock(now func() time.Time) Option {
	return func(d *Definition) { d.now = now }
}

func NewDefinition(spec Spec, opts ...Option) *Definition {
	d := &Definition{spec: spec}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Definition) Kind() string        { return d.spec.Kind }
func (d *Definition) DisplayName() string { return d.spec.DisplayName }
func (d *Definition) Spec() Spec          { return d.spec }

func (d *Definition) Info() connector.Info {
	strategy, err := d.strategy()
	if err != nil {
		return d.info(d.spec.BaseURL, nil, nil)
	}
	return d.info(d.spec.BaseURL, strategy, nil)
}

// info lists the strategy's fields and the fetch path placeholders first.
// Configured extra fields are appended; they never drop a field the
// provider itself needs.
func (d *Definition) info(baseURL string, strategy auth.Strategy, extra []string) connector.Info {
	var required []string
	add := func(fields []string) {
		for _, f := range fields {
			if f = strings.TrimSpace(f); f != "" && !slices.Contains(required, f) {
				required = append(required, f)
			}
		}
	}
	if strategy != nil {
		add(strategy.RequiredFields())
	}
	add(auth.TemplateFields(d.spec.FetchPath))
	add(extra)
	return connector.Info{
		Kind:                d.spec.Kind,
		DisplayName:         d.spec.DisplayName,
		BaseURL:             baseURL,
		Family:              d.spec.Family,
		Auth:                d.spec.Auth,
		RequiredCredentials: required,
	}
}

func (d *Definition) clock() func() time.Time {
	if d.now != nil {
		return d.now
	}
	return time.Now
}

func (d *Definition) strategy() (auth.Strategy, error) {
	switch d.spec.Auth {
	case connector.AuthAPIKey:
		return auth.APIKey{Header: d.spec.APIKeyHeader}, nil
	case connector.AuthBasic:
		return auth.Basic{}, nil
	case connector.AuthOAuthClientCredentials:
		if strings.TrimSpace(d.spec.TokenURL) == "" {
			return nil, fmt.Errorf("%s: oauth token url is required", d.spec.Kind)
		}
		return &auth.OAuthClientCredentials{
			TokenURL:   d.spec.TokenURL,
			Scopes:     d.spec.Scopes,
			HTTPClient: d.httpClient,
			Now:        d.clock(),
		}, nil
	case connector.AuthSigV4:
		if strings.TrimSpace(d.spec.AWSService) == "" {
			return nil, fmt.Errorf("%s: sigv4 service name is required", d.spec.Kind)
		}
		return &auth.SigV4{
			Service: d.spec.AWSService,
			Region:  d.spec.AWSRegion,
			Now:     d.clock(),
		}, nil
	default:
		return nil, fmt.Errorf("%s: unsupported auth scheme %q", d.spec.Kind, d.spec.Auth)
	}
}

// NewInstance builds a connector for one configured account of this provider.
func (d *Definition) NewInstance(cfg configstore.IntegrationConfig, opts connector.Options) (connector.Instance, error) {
	cfg = cfg.Normalized()
	strategy, err := d.strategy()
	if err != nil {
		return nil, err
	}
	baseURL := d.spec.BaseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	client, err := upstream.New(baseURL, cfg.RequestsPerSecond, cfg.Burst)
	if err != nil {
		return nil, err
	}
	if d.httpClient != nil {
		client.HTTP = d.httpClient
	}
	if opts.Now == nil {
		opts.Now = d.clock()
	}

	src := source{
		connectorID: cfg.ID,
		info:        d.info(baseURL, strategy, cfg.RequiredCredentials),
		strategy:    strategy,
		client:      client,
		fetchPath:   d.spec.FetchPath,
		dataKey:     d.spec.DataKey,
		now:         opts.Now,
	}
	ident := connector.Identity{ID: cfg.ID, OrganizationID: cfg.OrganizationID, Name: cfg.DisplayName()}
	creds := connector.NewCredentials(cfg.Credentials)

	switch d.spec.Family {
	case emissions.FamilyUtility:
		p := &httpProvider[emissions.UtilityReading]{source: src, derive: emissions.Utility}
		return connector.New[emissions.UtilityReading](ident, p, creds, opts), nil
	case emissions.FamilyCloud:
		p := &httpProvider[emissions.CloudUsage]{source: src, derive: emissions.Cloud}
		return connector.New[emissions.CloudUsage](ident, p, creds, opts), nil
	case emissions.FamilyTransport:
		p := &httpProvider[emissions.VehicleUsage]{source: src, derive: emissions.Transport}
		return connector.New[emissions.VehicleUsage](ident, p, creds, opts), nil
	case emissions.FamilyFinance:
		p := &httpProvider[emissions.Expense]{source: src, derive: emissions.Finance}
		return connector.New[emissions.Expense](ident, p, creds, opts), nil
	default:
		return nil, fmt.Errorf("%s: unknown provider family %q", d.spec.Kind, d.spec.Family)
	}
}

// Definitions returns one definition per table entry.
func Definitions(opts ...Option) []*Definition {
	specs := Table()
	out := make([]*Definition, 0, len(specs))
	for _, spec := range specs {
		out = append(out, NewDefinition(spec, opts...))
	}
	return out
}

// RegisterAll registers every built-in provider.
func RegisterAll(reg *registry.ConnectorRegistry, opts ...Option) error {
	for _, def := range Definitions(opts...) {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}
