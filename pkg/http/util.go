package http

import "github.com/labstack/echo/v4"

// QueryHas reports whether the request carries the named query parameter, even when empty.
func QueryHas(c echo.Context, name string) bool {
	_, ok := c.QueryParams()[name]
	return ok
}

// QueryHasAny reports whether any of names is present.
func QueryHasAny(c echo.Context, names ...string) bool {
	for _, n := range names {
		if QueryHas(c, n) {
			return true
		}
	}
	return false
}
