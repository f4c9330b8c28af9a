package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v5"
)

// queryInt reads an integer query parameter. An absent parameter yields def.
func queryInt(c *echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func queryBool(c *echo.Context, name string) (bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", name)
	}
	return v, nil
}

func pageParams(c *echo.Context) (page, perPage int, err error) {
	if page, err = queryInt(c, "page", 1); err != nil {
		return 0, 0, err
	}
	if perPage, err = queryInt(c, "per_page", 0); err != nil {
		return 0, 0, err
	}
	return page, perPage, nil
}
