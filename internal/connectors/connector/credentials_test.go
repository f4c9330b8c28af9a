package connector

import (
	"reflect"
	"testing"
	"time"
)

func TestNewCredentialsSeedsTokenFields(t *testing.T) {
	t.Parallel()

	c := NewCredentials(map[string]string{
		"client_id":    "abc",
		"access_token": " tok ",
		"expires_at":   "1736931600000",
	})
	if got := c.AccessToken(); got != "tok" {
		t.Fatalf("AccessToken() = %q, want %q", got, "tok")
	}
	want := time.UnixMilli(1736931600000)
	if got := c.ExpiresAt(); !got.Equal(want) {
		t.Fatalf("ExpiresAt() = %v, want %v", got, want)
	}
	if got := c.Get(FieldExpiresAt); got != "1736931600000" {
		t.Fatalf("Get(expires_at) = %q", got)
	}
	if _, ok := c.Values()["access_token"]; ok {
		t.Fatal("token leaked into static values")
	}
}

func TestHasValidTokenIsStrict(t *testing.T) {
	t.Parallel()

	exp := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCredentials(nil)
	c.SetToken("tok", exp)

	if !c.HasValidToken(exp.Add(-time.Millisecond)) {
		t.Fatal("token should be valid before expiry")
	}
	if c.HasValidToken(exp) {
		t.Fatal("token should be expired at expires_at")
	}
	c.ClearToken()
	if c.HasValidToken(exp.Add(-time.Hour)) {
		t.Fatal("cleared token should not be valid")
	}
}

func TestMissingListsBlankFieldsInOrder(t *testing.T) {
	t.Parallel()

	c := NewCredentials(map[string]string{"username": "u", "password": " "})
	got := c.Missing([]string{"username", "password", "account"})
	if want := []string{"password", "account"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Missing() = %v, want %v", got, want)
	}
	c.Set("password", "p")
	c.Set("account", "a")
	if !c.HasAll([]string{"username", "password", "account"}) {
		t.Fatal("HasAll() = false after setting fields")
	}
}

func TestStatusMachineIsAdvisory(t *testing.T) {
	t.Parallel()

	m := NewStatusMachine(nil, nil)
	m.Set(StateConnected, "ignored")
	if st := m.Current(); st.State != StateConnected || st.Message != "" {
		t.Fatalf("Current() = %+v", st)
	}
	m.Set(StateError, "")
	if st := m.Current(); st.Message != "unknown error" {
		t.Fatalf("error message = %q, want generic message", st.Message)
	}
	m.Set(StateAuthenticating, "")
	if st := m.Current(); st.State != StateAuthenticating {
		t.Fatalf("State = %q, want %q", st.State, StateAuthenticating)
	}
}
