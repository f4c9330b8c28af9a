package sync

import (
	"context"
	"slices"
	"testing"
)

func TestTriggerRequestNormalized(t *testing.T) {
	t.Parallel()

	got := (TriggerRequest{ConnectorIDs: []string{" octopus ", "", "aws", "octopus"}, Force: true}).Normalized()
	if !slices.Equal(got.ConnectorIDs, []string{"octopus", "aws"}) || !got.Force {
		t.Fatalf("normalized request = %+v", got)
	}
}

func TestWithConnectorScopeRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithConnectorScope(context.Background(), " xero-main ", "geotab")
	ids, ok := ConnectorScopeFromContext(ctx)
	if !ok {
		t.Fatalf("expected scope in context")
	}
	if !slices.Equal(ids, []string{"xero-main", "geotab"}) {
		t.Fatalf("scope = %v", ids)
	}
}

func TestWithConnectorScopeIgnoresEmptyScope(t *testing.T) {
	t.Parallel()

	ctx := WithConnectorScope(context.Background(), " ", "")
	if _, ok := ConnectorScopeFromContext(ctx); ok {
		t.Fatalf("expected no scope for blank ids")
	}
}

func TestTriggerRequestContext(t *testing.T) {
	t.Parallel()

	ctx := TriggerRequest{ConnectorIDs: []string{"aws"}, Force: true}.Context(context.Background())
	if !IsForcedSync(ctx) {
		t.Fatalf("expected forced context")
	}
	if ids, ok := ConnectorScopeFromContext(ctx); !ok || !slices.Equal(ids, []string{"aws"}) {
		t.Fatalf("scope = %v, %v", ids, ok)
	}

	plain := TriggerRequest{}.Context(context.Background())
	if IsForcedSync(plain) {
		t.Fatalf("expected non-forced context")
	}
	if _, ok := ConnectorScopeFromContext(plain); ok {
		t.Fatalf("expected no scope")
	}
}

func TestWithForcedSyncRoundTrip(t *testing.T) {
	t.Parallel()

	if IsForcedSync(context.Background()) {
		t.Fatalf("expected background context to be non-forced")
	}
	if !IsForcedSync(WithForcedSync(nil)) {
		t.Fatalf("expected forced context")
	}
}
