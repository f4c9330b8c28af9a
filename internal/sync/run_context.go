package sync

import (
	"context"
	"strings"
)

type syncRunContextKey int

const (
	syncRunContextKeyForce syncRunContextKey = iota
	syncRunContextKeyConnectorScope
)

// TriggerRequest is the body of a calculation trigger.
type TriggerRequest struct {
	ConnectorIDs []string `json:"connector_ids,omitempty"`
	Force        bool     `json:"force,omitempty"`
}

func (r TriggerRequest) Normalized() TriggerRequest {
	var ids []string
	seen := map[string]struct{}{}
	for _, id := range r.ConnectorIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return TriggerRequest{ConnectorIDs: ids, Force: r.Force}
}

// Context applies the request's scope and force flag to ctx.
func (r TriggerRequest) Context(ctx context.Context) context.Context {
	r = r.Normalized()
	if r.Force {
		ctx = WithForcedSync(ctx)
	}
	return WithConnectorScope(ctx, r.ConnectorIDs...)
}

// WithForcedSync bypasses the run policy's failure backoff.
func WithForcedSync(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, syncRunContextKeyForce, true)
}

// WithConnectorScope limits a run to the given connector ids.
func WithConnectorScope(ctx context.Context, connectorIDs ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	req := TriggerRequest{ConnectorIDs: connectorIDs}.Normalized()
	if len(req.ConnectorIDs) == 0 {
		return ctx
	}
	return context.WithValue(ctx, syncRunContextKeyConnectorScope, req.ConnectorIDs)
}

func IsForcedSync(ctx context.Context) bool {
	v, ok := ctx.Value(syncRunContextKeyForce).(bool)
	return ok && v
}

func ConnectorScopeFromContext(ctx context.Context) ([]string, bool) {
	if ctx == nil {
		return nil, false
	}
	ids, ok := ctx.Value(syncRunContextKeyConnectorScope).([]string)
	if !ok || len(ids) == 0 {
		return nil, false
	}
	return ids, true
}
