package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/btnalit/clash-cfg-edit/internal/config"
	"github.com/btnalit/clash-cfg-edit/internal/logger"
	"github.com/btnalit/clash-cfg-edit/internal/session"
	"github.com/btnalit/clash-cfg-edit/internal/utils"
)

// Logger logs each request with a generated id, outcome and latency.
func Logger(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := utils.UUID()
			c.Set("request_id", requestID)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			l.Info(
				"http server:  request",
				zap.String("request_id", requestID),
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			)

			return err
		}
	}
}

// General sets common response headers.
func General() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("Server", config.AppName)
			return next(c)
		}
	}
}

// BearerToken extracts the bearer token from the Authorization header,
// returning "" when absent or malformed.
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// Authorize gates routes behind a valid session token. With the
// authentication feature administratively disabled it passes everything
// through unconditionally.
func Authorize(sessions *session.Manager, enabled bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !enabled {
				return next(c)
			}

			token := BearerToken(c)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"success": false,
					"message": "Unauthorized.",
				})
			}

			if !sessions.Verify(token) {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"success": false,
					"message": "Token expired or invalid.",
				})
			}

			return next(c)
		}
	}
}
