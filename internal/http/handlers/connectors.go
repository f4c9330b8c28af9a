package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/emissions"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/registry"
	"github.com/streetvisit/carbon-recycling-platform/internal/sync"
)

type connectorView struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id,omitempty"`
	Name           string            `json:"name"`
	Kind           string            `json:"kind"`
	Provider       string            `json:"provider"`
	Family         emissions.Family  `json:"family"`
	Status         connector.State   `json:"status"`
	Message        string            `json:"message,omitempty"`
	Retryable      bool              `json:"retryable"`
	StatusChanged  time.Time         `json:"status_changed_at"`
	Health         string            `json:"health"`
	NeedsAttention bool              `json:"needs_attention"`
	Records        int               `json:"records"`
	LastFetch      string            `json:"last_fetch,omitempty"`
	FetchedAt      *time.Time        `json:"fetched_at,omitempty"`
	Emissions      *emissions.Result `json:"emissions,omitempty"`
}

func (h *Handlers) connectorView(now time.Time, snap connector.Snapshot) connectorView {
	health := connectorHealth(now, h.SyncInterval, snap)
	name := snap.Name
	if name == "" {
		name = snap.ID
	}
	return connectorView{
		ID:             snap.ID,
		OrganizationID: snap.OrganizationID,
		Name:           name,
		Kind:           snap.Info.Kind,
		Provider:       snap.Info.DisplayName,
		Family:         snap.Info.Family,
		Status:         snap.Status.State,
		Message:        snap.Status.Message,
		Retryable:      snap.Status.Retryable,
		StatusChanged:  snap.Status.ChangedAt,
		Health:         string(health.status),
		NeedsAttention: health.needsAttention,
		Records:        snap.Records,
		LastFetch:      health.lastFetchLabel,
		FetchedAt:      snap.FetchedAt,
		Emissions:      snap.Result,
	}
}

// HandleConnectors lists every configured connector with its status.
func (h *Handlers) HandleConnectors(c *echo.Context) error {
	now := h.now()
	snaps := h.Registry.Snapshots()
	out := make([]connectorView, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, h.connectorView(now, snap))
	}
	return c.JSON(http.StatusOK, map[string]any{"connectors": out, "total": len(out)})
}

// HandleConnectorEmissions returns the memoized emissions of one connector,
// fetching first when it has no data.
func (h *Handlers) HandleConnectorEmissions(c *echo.Context) error {
	id := c.Param("id")
	result, err := h.Registry.GetEmissions(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownConnector) {
			return jsonError(c, http.StatusNotFound, err.Error())
		}
		retryable := connector.IsRetryable(err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:     err.Error(),
			Retryable: &retryable,
			RequestID: RequestID(c),
		})
	}
	return c.JSON(http.StatusOK, result)
}

// HandleConnectorAuthenticate re-runs authentication for one connector.
// Failure is reported in the body, not the status code.
func (h *Handlers) HandleConnectorAuthenticate(c *echo.Context) error {
	id := c.Param("id")
	status, err := h.Registry.Authenticate(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownConnector) {
			return jsonError(c, http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id":            id,
		"authenticated": status.State == connector.StateConnected,
		"status":        status,
	})
}

// HandleCalculate refreshes connectors and recalculates their emissions. The
// optional body scopes the run to connector ids or bypasses failure backoff.
func (h *Handlers) HandleCalculate(c *echo.Context) error {
	if h.Syncer == nil {
		return jsonError(c, http.StatusServiceUnavailable, "calculation runner is not configured")
	}

	var req sync.TriggerRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	summary, err := h.Syncer.RunOnce(req.Context(c.Request().Context()))
	switch {
	case err == nil, errors.Is(err, sync.ErrNoConnectors), errors.Is(err, sync.ErrNoConnectorsDue):
		return c.JSON(http.StatusOK, summary)
	case errors.Is(err, sync.ErrSyncAlreadyRunning):
		return jsonError(c, http.StatusConflict, err.Error())
	default:
		return err
	}
}

// HandleProviders lists the providers connectors can be configured with.
func (h *Handlers) HandleProviders(c *echo.Context) error {
	defs := h.Registry.All()
	out := make([]connector.Info, 0, len(defs))
	for _, def := range defs {
		out = append(out, def.Info())
	}
	return c.JSON(http.StatusOK, map[string]any{"providers": out, "total": len(out)})
}
