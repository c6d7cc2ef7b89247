package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/localpros/api/internal/auth"
)

// JWT validates backoffice bearer tokens and stores the operator in the request context.
func JWT(manager *auth.JWTManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return deny(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", "missing authorization header")
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return deny(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", "invalid authorization header")
			}

			claims, err := manager.ParseToken(strings.TrimSpace(token))
			if err != nil {
				Logger(c).Debug("rejected bearer token", zap.Error(err))
				return deny(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", "invalid token")
			}

			c.Set(ContextKeyOperatorID, claims.Subject)
			c.Set(ContextKeyOperatorEmail, claims.Email)
			c.Set(ContextKeyOperatorRole, claims.Role)

			return next(c)
		}
	}
}
