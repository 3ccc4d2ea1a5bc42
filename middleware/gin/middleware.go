// Package ginmw adapts the typebridge request validation to gin.
package ginmw

import (
	"github.com/gin-gonic/gin"

	"github.com/reoring/typebridge/compile"
	"github.com/reoring/typebridge/middleware"
)

// ValidateJSON parses the request body with v, stores the parsed value in
// the request context and aborts with the issues payload on failure.
func ValidateJSON(v *compile.Validator, opts ...middleware.Option) gin.HandlerFunc {
	return func(c *gin.Context) {
		val, status, iss := middleware.DecodeRequest(c.Writer, c.Request, v, opts...)
		if iss != nil {
			c.AbortWithStatusJSON(status, middleware.ErrorPayload(iss))
			return
		}
		c.Request = c.Request.WithContext(middleware.ContextWithValue(c.Request.Context(), val))
		c.Next()
	}
}

// Value returns the parsed body stored by ValidateJSON.
func Value(c *gin.Context) (any, bool) {
	return middleware.ValueFromContext(c.Request.Context())
}
