package httpapp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/streetvisit/carbon-recycling-platform/internal/http/handlers"
	"github.com/streetvisit/carbon-recycling-platform/internal/metrics"
)

const headerXRequestID = "X-Request-Id"

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h      *handlers.Handlers
	e      *echo.Echo
	logger *slog.Logger
}

// NewEchoServer creates a new HTTP server. Factor catalog routes are
// registered only when h.Catalog is set.
func NewEchoServer(h *handlers.Handlers, logger *slog.Logger) (*EchoServer, error) {
	if h == nil || h.Registry == nil {
		return nil, errors.New("http server requires a connector registry")
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.Logger = logger
	es := &EchoServer{h: h, e: e, logger: logger}
	e.HTTPErrorHandler = es.httpErrorHandler
	es.registerRoutes()
	return es, nil
}

func (es *EchoServer) registerRoutes() {
	es.e.Use(requestIDMiddleware)
	es.e.Use(middleware.Recover())

	es.e.GET("/healthz", es.h.HandleHealthz)
	es.e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := es.e.Group("/api")
	api.GET("/providers", es.h.HandleProviders)
	api.GET("/connectors", es.h.HandleConnectors)
	api.GET("/connectors/:id/emissions", es.h.HandleConnectorEmissions)
	api.POST("/connectors/:id/authenticate", es.h.HandleConnectorAuthenticate)
	api.POST("/calculate", es.h.HandleCalculate)

	if es.h.Catalog != nil {
		api.GET("/factors", es.h.HandleFactors)
		api.POST("/factors/search", es.h.HandleFactorSearch)
		api.GET("/factors/categories", es.h.HandleFactorCategories)
		api.GET("/factors/metadata", es.h.HandleFactorMetadata)
		api.GET("/factors/major-changes", es.h.HandleFactorMajorChanges)
		api.GET("/factors/quick-lookup", es.h.HandleFactorQuickLookup)
		api.GET("/factors/:id", es.h.HandleFactor)
	}
}

// requestIDMiddleware propagates the caller's X-Request-Id or assigns one.
func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Request().Header.Get(headerXRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(handlers.ContextKeyRequestID, id)
		c.Response().Header().Set(headerXRequestID, id)
		return next(c)
	}
}

type statusCoder interface {
	StatusCode() int
}

func httpStatusFromError(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code != 0 {
			return code
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code != 0 {
		return he.Code
	}
	return http.StatusInternalServerError
}

// httpErrorHandler renders errors that handlers returned instead of writing a
// response. Only the status text reaches the client; server errors are
// logged with the request id the client sees.
func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	status := httpStatusFromError(err)
	requestID := handlers.RequestID(c)

	body := handlers.ErrorResponse{Error: http.StatusText(status), RequestID: requestID}
	if status >= http.StatusInternalServerError {
		body.Error = "Internal server error"
		body.Code = handlers.InternalErrorCode
		es.logger.Error("request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"request_id", requestID,
			"err", err,
		)
	}
	if body.Error == "" {
		body.Error = "Request failed"
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		es.logger.Debug("write error response", "err", writeErr)
	}
}

// Handler exposes the router for tests and custom servers.
func (es *EchoServer) Handler() http.Handler {
	return es.e
}

// StartServer serves on server with the router as its handler and blocks
// until the server stops. http.ErrServerClosed is not an error.
func (es *EchoServer) StartServer(server *http.Server) error {
	server.Handler = es.e
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down server.
func (es *EchoServer) Shutdown(ctx context.Context, server *http.Server) error {
	return server.Shutdown(ctx)
}
