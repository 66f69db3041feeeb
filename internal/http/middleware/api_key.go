package middleware

import (
	"net/http"
	"strings"

	"github.com/citymesh/message-gateway/internal/repository"
	echo "github.com/labstack/echo/v4"
)

// CallerIDFromCtx extracts the authenticated caller id set by APIKeyMiddleware.
func CallerIDFromCtx(c echo.Context) (int64, bool) {
	v := c.Get("caller_id")
	id, ok := v.(int64)
	return id, ok
}

// APIKeyMiddleware authenticates requests using the X-API-Key header.
// On success it stores the caller id in context and blocks suspended keys.
func APIKeyMiddleware(keys repository.APIKeysRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			k, err := keys.GetByKey(c.Request().Context(), key)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if k == nil || k.Status != "active" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			c.Set("caller_id", k.ID)
			c.Set("caller_name", k.Name)
			if k.RateLimitRPS != nil {
				c.Set("caller_rps", *k.RateLimitRPS)
			}
			return next(c)
		}
	}
}
