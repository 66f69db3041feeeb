package middleware

import (
	"strings"

	"github.com/citymesh/message-gateway/internal/util"
	echo "github.com/labstack/echo/v4"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware ensures every request carries a correlation id,
// generating a ULID when the caller did not supply one.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(requestIDHeader))
			if id == "" {
				id = util.NewRequestID()
			}
			c.Set("request_id", id)
			c.Response().Header().Set(requestIDHeader, id)
			return next(c)
		}
	}
}
