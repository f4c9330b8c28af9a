package connector

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	FieldAccessToken = "access_token"
	FieldExpiresAt   = "expires_at"
)

// Credentials is the mutable secret bag of one connector instance. Token
// exchanges write access_token and expires_at back into the same bag so later
// calls see the refreshed token.
type Credentials struct {
	mu          sync.RWMutex
	values      map[string]string
	accessToken string
	expiresAt   time.Time
}

// NewCredentials copies values. An access_token / expires_at (epoch
// milliseconds) pair present in values seeds the token fields.
func NewCredentials(values map[string]string) *Credentials {
	c := &Credentials{values: make(map[string]string, len(values))}
	for k, v := range values {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		switch k {
		case FieldAccessToken:
			c.accessToken = strings.TrimSpace(v)
		case FieldExpiresAt:
			if ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && ms > 0 {
				c.expiresAt = time.UnixMilli(ms)
			}
		default:
			c.values[k] = v
		}
	}
	return c
}

// Get returns the trimmed value of a field, or "" when it is absent.
func (c *Credentials) Get(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch name {
	case FieldAccessToken:
		return c.accessToken
	case FieldExpiresAt:
		if c.expiresAt.IsZero() {
			return ""
		}
		return strconv.FormatInt(c.expiresAt.UnixMilli(), 10)
	}
	return strings.TrimSpace(c.values[name])
}

func (c *Credentials) Set(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
}

// Missing lists the required fields that are absent or blank, in order.
func (c *Credentials) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if c.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// HasAll reports whether every required field is present and non-blank.
func (c *Credentials) HasAll(required []string) bool {
	return len(c.Missing(required)) == 0
}

func (c *Credentials) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *Credentials) ExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt
}

// SetToken stores a freshly exchanged token and its expiry.
func (c *Credentials) SetToken(token string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = strings.TrimSpace(token)
	c.expiresAt = expiresAt
}

// ClearToken drops the cached token, forcing the next operation to re-authenticate.
func (c *Credentials) ClearToken() {
	c.SetToken("", time.Time{})
}

// HasValidToken reports whether a token is present and now < expires_at.
func (c *Credentials) HasValidToken(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken != "" && !c.expiresAt.IsZero() && now.Before(c.expiresAt)
}

// Fields returns the sorted names of fields that hold a value, never the values.
func (c *Credentials) Fields() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.values)+2)
	for k, v := range c.values {
		if strings.TrimSpace(v) != "" {
			names = append(names, k)
		}
	}
	if c.accessToken != "" {
		names = append(names, FieldAccessToken)
	}
	if !c.expiresAt.IsZero() {
		names = append(names, FieldExpiresAt)
	}
	slices.Sort(names)
	return names
}

// Values returns a copy of the static fields, excluding token state.
func (c *Credentials) Values() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.values)
}
