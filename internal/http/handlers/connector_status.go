package handlers

import (
	"fmt"
	"time"

	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
)

type connectorHealthStatus string

const (
	connectorHealthNeverFetched connectorHealthStatus = "never_fetched"
	connectorHealthHealthy      connectorHealthStatus = "healthy"
	connectorHealthDegraded     connectorHealthStatus = "degraded"
	connectorHealthFailing      connectorHealthStatus = "failing"
	connectorHealthStale        connectorHealthStatus = "stale"
	minStaleAfter                                     = 2 * time.Hour
	maxStaleAfter                                     = 72 * time.Hour
)

type connectorHealthResult struct {
	status         connectorHealthStatus
	lastFetchLabel string
	needsAttention bool
}

// connectorHealth classifies a connector from its snapshot. An error that
// will not clear on retry is failing; a retryable one is degraded.
func connectorHealth(now time.Time, expectedInterval time.Duration, snap connector.Snapshot) connectorHealthResult {
	var result connectorHealthResult
	if snap.FetchedAt != nil {
		result.lastFetchLabel = formatAge(now, *snap.FetchedAt)
	}

	switch {
	case snap.Status.State == connector.StateError && !snap.Status.Retryable:
		result.status = connectorHealthFailing
	case snap.Status.State == connector.StateError:
		result.status = connectorHealthDegraded
	case snap.FetchedAt == nil:
		result.status = connectorHealthNeverFetched
	case !now.IsZero() && now.Sub(*snap.FetchedAt) > staleAfterInterval(expectedInterval):
		result.status = connectorHealthStale
	default:
		result.status = connectorHealthHealthy
	}
	result.needsAttention = result.status != connectorHealthHealthy
	return result
}

func staleAfterInterval(expectedInterval time.Duration) time.Duration {
	derived := expectedInterval * 4
	if derived < minStaleAfter {
		return minStaleAfter
	}
	if derived > maxStaleAfter {
		return maxStaleAfter
	}
	return derived
}

func formatAge(now time.Time, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if now.IsZero() {
		now = time.Now()
	}
	delta := now.Sub(t)
	if delta < 0 {
		delta = 0
	}
	switch {
	case delta < time.Minute:
		return "just now"
	case delta < time.Hour:
		return fmt.Sprintf("%dm ago", int(delta.Minutes()))
	case delta < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(delta.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(delta.Hours()/24))
	}
}
