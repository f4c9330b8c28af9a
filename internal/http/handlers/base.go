// Package handlers contains HTTP handler logic split by domain.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/registry"
	"github.com/streetvisit/carbon-recycling-platform/internal/factors"
	"github.com/streetvisit/carbon-recycling-platform/internal/sync"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = "request_id"

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"

	maxRequestBody = 1 << 20
)

// SyncRunner is the interface for triggering calculation passes.
type SyncRunner interface {
	RunOnce(context.Context) (sync.Summary, error)
}

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Registry     *registry.ConnectorRegistry
	Syncer       SyncRunner
	Catalog      *factors.Catalog
	MajorChanges *factors.MajorChanges
	SyncInterval time.Duration
	Now          func() time.Time
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Retryable *bool  `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// HandleHealthz returns a simple health check response.
func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// RequestID returns the request id stored on the context, if any.
func RequestID(c *echo.Context) string {
	id, _ := c.Get(ContextKeyRequestID).(string)
	return id
}

func jsonError(c *echo.Context, status int, message string) error {
	return c.JSON(status, ErrorResponse{Error: message, RequestID: RequestID(c)})
}

// decodeJSONBody decodes an optional JSON request body into dst. An empty
// body leaves dst untouched.
func decodeJSONBody(c *echo.Context, dst any) error {
	body := c.Request().Body
	if body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
