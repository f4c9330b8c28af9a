package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/auth"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/emissions"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/upstream"
	"github.com/streetvisit/carbon-recycling-platform/internal/metrics"
)

type record interface {
	Validate() error
}

// source is the record-type independent half of a provider.
type source struct {
	connectorID string
	info        connector.Info
	strategy    auth.Strategy
	client      *upstream.Client
	fetchPath   string
	dataKey     string
	now         func() time.Time
}

type httpProvider[R record] struct {
	source
	derive func([]R, time.Time) emissions.Result
}

func (p *httpProvider[R]) Info() connector.Info { return p.info }

func (p *httpProvider[R]) IsAuthenticated(creds *connector.Credentials, now time.Time) bool {
	if p.info.Auth.TokenBased() {
		return p.strategy.IsAuthenticated(creds, now)
	}
	return creds.HasAll(p.info.RequiredCredentials) && p.strategy.IsAuthenticated(creds, now)
}

func (p *httpProvider[R]) Authenticate(ctx context.Context, creds *connector.Credentials) error {
	return p.strategy.Authenticate(ctx, creds)
}

func (p *httpProvider[R]) Fetch(ctx context.Context, creds *connector.Credentials) ([]R, error) {
	start := p.now()
	records, err := p.fetch(ctx, creds)
	metrics.ObserveFetch(p.info.Kind, p.connectorID, p.now().Sub(start), len(records), err)
	return records, err
}

func (p *httpProvider[R]) fetch(ctx context.Context, creds *connector.Credentials) ([]R, error) {
	path, err := auth.ExpandTemplate(p.fetchPath, creds)
	if err != nil {
		return nil, err
	}
	endpoint, err := p.client.Endpoint(path, nil)
	if err != nil {
		return nil, err
	}
	body, err := p.client.Get(ctx, endpoint, func(ctx context.Context, req *http.Request) error {
		return p.strategy.Apply(ctx, req, creds)
	})
	if err != nil {
		// A rejected token is dropped so the next fetch exchanges a new one.
		if upstream.StatusCode(err) == http.StatusUnauthorized && p.info.Auth.TokenBased() {
			creds.ClearToken()
		}
		return nil, err
	}
	return decodeRecords[R](body, p.dataKey)
}

func (p *httpProvider[R]) Derive(records []R, now time.Time) (emissions.Result, error) {
	result := p.derive(records, now)
	metrics.SetEmissions(p.info.Kind, p.connectorID, result.TotalCO2eKg)
	return result, nil
}

// decodeRecords reads a record array, either the whole body or the field
// named dataKey. Records with negative quantities are rejected.
func decodeRecords[R record](body []byte, dataKey string) ([]R, error) {
	raw := bytes.TrimSpace(body)
	if len(raw) == 0 {
		return []R{}, nil
	}
	if dataKey != "" {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		inner, ok := envelope[dataKey]
		if !ok {
			return nil, fmt.Errorf("decode response: missing %q field", dataKey)
		}
		raw = bytes.TrimSpace(inner)
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []R{}, nil
	}

	var records []R
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if records == nil {
		records = []R{}
	}
	return records, nil
}
