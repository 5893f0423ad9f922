package v1

import (
	"fmt"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/btnalit/clash-cfg-edit/internal/config"
	"github.com/btnalit/clash-cfg-edit/internal/http/middleware"
	"github.com/btnalit/clash-cfg-edit/internal/session"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func AuthStatus(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"success":     true,
			"authEnabled": cfg.Auth.Enabled,
		})
	}
}

func Login(cfg *config.Config, sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !cfg.Auth.Enabled {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"message": "Authentication is not enabled.",
			})
		}

		var r LoginRequest
		if err := c.Bind(&r); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"message": "Cannot parse the request body.",
			})
		}
		if err := c.Validate(&r); err != nil {
			return err
		}

		clientID := c.RealIP()

		if blocked, wait := sessions.Blocked(clientID); blocked {
			minutes := int(math.Ceil(wait.Minutes()))
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"success": false,
				"message": fmt.Sprintf(
					"Too many login attempts. Please try again in %d minutes.", minutes),
			})
		}

		if r.Username != cfg.Auth.Username || r.Password != cfg.Auth.Password {
			remaining := sessions.RecordFailure(clientID)
			return c.JSON(http.StatusUnauthorized, map[string]any{
				"success":           false,
				"message":           "Invalid username or password.",
				"remainingAttempts": remaining,
			})
		}

		sessions.RecordSuccess(clientID)

		token, expiresIn, err := sessions.Issue()
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success":   true,
			"token":     token,
			"expiresIn": int64(expiresIn.Seconds()),
			"message":   "Login successful.",
		})
	}
}

func AuthVerify() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"message": "Token is valid.",
		})
	}
}

func Logout(sessions *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token := middleware.BearerToken(c); token != "" {
			sessions.Revoke(token)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"message": "Logged out successfully.",
		})
	}
}
