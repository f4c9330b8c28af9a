// Package upstream performs rate-limited JSON reads against provider APIs.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 120 * time.Second
	maxRetries       = 3
	maxBodySize      = 32 << 20
	maxErrorBodySize = 1 << 20 // 1 MiB
	userAgent        = "carbonsync"
)

// Authorizer adds credentials to an outbound request.
type Authorizer func(ctx context.Context, req *http.Request) error

type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Limiter throttles outbound requests; nil means unlimited.
	Limiter *rate.Limiter
	// Sleep is replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New returns a client for baseURL. rps <= 0 disables throttling.
func New(baseURL string, rps float64, burst int) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("upstream base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("upstream base URL: %w", err)
	}
	c := &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return c, nil
}

// Endpoint joins path and query onto the base URL.
func (c *Client) Endpoint(path string, query url.Values) (string, error) {
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/"))
	if err != nil {
		return "", err
	}
	if path != "" {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	u.Fragment = ""
	return u.String(), nil
}

// Get issues a GET and returns the response body. 429 and 503 responses are
// retried after Retry-After (default one second), up to three times.
func (c *Client) Get(ctx context.Context, endpoint string, authorize Authorizer) ([]byte, error) {
	if c.HTTP == nil {
		return nil, errors.New("upstream http client is not configured")
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if authorize != nil {
			if err := authorize(ctx, req); err != nil {
				return nil, err
			}
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, fmt.Errorf("upstream request %s: %w", safeURL(endpoint), err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
			resp.Body.Close()
			if readErr != nil {
				return nil, readErr
			}
			return body, nil
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		apiErr := newError(endpoint, resp, body)
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
			return nil, apiErr
		}
		lastErr = apiErr
		if attempt == maxRetries {
			break
		}
		wait, ok := retryAfterDuration(resp.Header.Get("Retry-After"))
		if !ok {
			wait = time.Second
		}
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("upstream request failed")
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return sleep(ctx, d)
}

func retryAfterDuration(header string) (time.Duration, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
