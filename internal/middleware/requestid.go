package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const contextKeyLogger = "logger"

// RequestID tags the request with the caller's X-Request-ID, or a fresh uuid, and
// stores a logger carrying it.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}

			c.Set(ContextKeyRequestID, rid)
			c.Set(contextKeyLogger, zap.L().With(zap.String("request_id", rid)))
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			return next(c)
		}
	}
}

// RequestIDFromContext extracts the request identifier if available.
func RequestIDFromContext(c echo.Context) string {
	if val, ok := c.Get(ContextKeyRequestID).(string); ok {
		return val
	}
	return ""
}

// Logger returns the request-scoped logger, falling back to the global one.
func Logger(c echo.Context) *zap.Logger {
	if l, ok := c.Get(contextKeyLogger).(*zap.Logger); ok {
		return l
	}
	return zap.L()
}
