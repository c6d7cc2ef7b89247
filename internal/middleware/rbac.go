package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole rejects operators whose token does not carry role.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			value, _ := c.Get(ContextKeyOperatorRole).(string)
			switch value {
			case role:
				return next(c)
			case "":
				return deny(c, http.StatusForbidden, "forbidden", "Forbidden", "missing role")
			default:
				return deny(c, http.StatusForbidden, "forbidden", "Forbidden", "insufficient permissions")
			}
		}
	}
}
