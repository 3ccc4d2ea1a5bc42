// Package echomw adapts the typebridge request validation to echo.
package echomw

import (
	"github.com/labstack/echo/v4"

	"github.com/reoring/typebridge/compile"
	"github.com/reoring/typebridge/middleware"
)

// ValidateJSON parses the request body with v and stores the parsed value
// in the request context. Failures are answered with the status chosen by
// middleware.DecodeRequest and the issues payload.
func ValidateJSON(v *compile.Validator, opts ...middleware.Option) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			val, status, iss := middleware.DecodeRequest(c.Response(), c.Request(), v, opts...)
			if iss != nil {
				return c.JSON(status, middleware.ErrorPayload(iss))
			}
			c.SetRequest(c.Request().WithContext(middleware.ContextWithValue(c.Request().Context(), val)))
			return next(c)
		}
	}
}

// Value returns the parsed body stored by ValidateJSON.
func Value(c echo.Context) (any, bool) {
	return middleware.ValueFromContext(c.Request().Context())
}
