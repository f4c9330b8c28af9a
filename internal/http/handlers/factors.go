package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/streetvisit/carbon-recycling-platform/internal/factors"
)

type factorPageResponse struct {
	Metadata factors.Metadata `json:"metadata"`
	factors.PageResult
}

// HandleFactors lists conversion factors filtered by scope, level-1 category
// and a free-text term.
func (h *Handlers) HandleFactors(c *echo.Context) error {
	req := factors.SearchRequest{
		Scope:          c.QueryParam("scope"),
		CategoryLevel1: c.QueryParam("category"),
		SearchTerm:     c.QueryParam("search"),
	}
	return h.renderFactorPage(c, req)
}

// HandleFactorSearch applies every filter of a JSON search request.
func (h *Handlers) HandleFactorSearch(c *echo.Context) error {
	var req factors.SearchRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid search request: "+err.Error())
	}
	if req.MinFactor != nil && req.MaxFactor != nil && *req.MinFactor > *req.MaxFactor {
		return jsonError(c, http.StatusBadRequest, "min_factor must not exceed max_factor")
	}
	return h.renderFactorPage(c, req)
}

func (h *Handlers) renderFactorPage(c *echo.Context, req factors.SearchRequest) error {
	page, perPage, err := pageParams(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	res, err := factors.Page(h.Catalog.Search(req), page, perPage)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, factorPageResponse{Metadata: h.Catalog.Metadata(), PageResult: res})
}

func (h *Handlers) HandleFactor(c *echo.Context) error {
	f, err := h.Catalog.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, factors.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handlers) majorChanges() *factors.MajorChanges {
	if h.MajorChanges != nil {
		return h.MajorChanges
	}
	return factors.NoMajorChanges()
}

// HandleFactorMetadata describes the loaded dataset and its change analysis.
func (h *Handlers) HandleFactorMetadata(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"conversion_factors": h.Catalog.Metadata(),
		"major_changes":      h.majorChanges().Metadata,
	})
}

func (h *Handlers) HandleFactorMajorChanges(c *echo.Context) error {
	return c.JSON(http.StatusOK, h.majorChanges())
}

func (h *Handlers) HandleFactorCategories(c *echo.Context) error {
	categories, scopes := h.Catalog.Categories()
	return c.JSON(http.StatusOK, map[string]any{"categories": categories, "scopes": scopes})
}

// HandleFactorQuickLookup returns common factors for electricity, a fuel
// type or a transport mode.
func (h *Handlers) HandleFactorQuickLookup(c *echo.Context) error {
	electricity, err := queryBool(c, "electricity")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	res := h.Catalog.QuickLookup(factors.QuickLookupRequest{
		FuelType:      c.QueryParam("fuel_type"),
		Electricity:   electricity,
		TransportMode: c.QueryParam("transport_mode"),
	})
	return c.JSON(http.StatusOK, res)
}
