package v1

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"regexp"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"github.com/btnalit/clash-cfg-edit/internal/document"
	"github.com/btnalit/clash-cfg-edit/internal/mihomo"
)

// controller addresses look like host:port, no scheme
var apiAddrPattern = regexp.MustCompile(`^[\w.-]+:\d+$`)

type ConnectRequest struct {
	ApiUrl string `json:"apiUrl" validate:"required"`
	Secret string `json:"secret"`
}

type ConfigUpdateRequest struct {
	ApiUrl string            `json:"apiUrl" validate:"required"`
	Secret string            `json:"secret"`
	Config document.Document `json:"config" validate:"required"`
}

type ReloadRequest struct {
	ApiUrl     string `json:"apiUrl" validate:"required"`
	Secret     string `json:"secret"`
	ConfigPath string `json:"configPath"`
}

func MihomoConnect(mc *mihomo.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		var r ConnectRequest
		if err := c.Bind(&r); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Cannot parse the request body.",
			})
		}
		if err := c.Validate(&r); err != nil {
			return err
		}

		if !apiAddrPattern.MatchString(r.ApiUrl) {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Invalid API URL format. Expected host:port (e.g. 127.0.0.1:9090).",
			})
		}

		version, err := mc.Version(c.Request().Context(), r.ApiUrl, r.Secret)
		if err != nil {
			return daemonError(c, err, "Failed to connect to mihomo")
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"version": version,
			"message": "Connected to mihomo successfully.",
		})
	}
}

func MihomoConfigShow(mc *mihomo.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		addr := c.QueryParam("apiUrl")
		if addr == "" {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "API URL is required.",
			})
		}

		conn := mc.Conn(addr, c.QueryParam("secret"))
		doc, warnings, err := mihomo.Synthesize(c.Request().Context(), conn)
		if err != nil {
			return daemonError(c, err, "Failed to load the running configuration")
		}

		response := map[string]any{
			"success": true,
			"config":  doc,
		}
		if len(warnings) > 0 {
			response["warning"] = strings.Join(warnings, " ")
		}

		return c.JSON(http.StatusOK, response)
	}
}

func MihomoConfigUpdate(mc *mihomo.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		var r ConfigUpdateRequest
		if err := c.Bind(&r); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Cannot parse the request body.",
			})
		}
		if err := c.Validate(&r); err != nil {
			return err
		}

		if _, err := mc.Patch(c.Request().Context(), r.ApiUrl, "/configs", r.Secret, r.Config); err != nil {
			return daemonError(c, err, "Failed to update the configuration")
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"message": "Configuration updated successfully.",
		})
	}
}

func MihomoProxiesIndex(mc *mihomo.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		addr := c.QueryParam("apiUrl")
		if addr == "" {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "API URL is required.",
			})
		}

		data, err := mc.Get(c.Request().Context(), addr, "/proxies", c.QueryParam("secret"))
		if err != nil {
			return daemonError(c, err, "Failed to load the proxy list")
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"proxies": json.RawMessage(data),
		})
	}
}

func MihomoReload(mc *mihomo.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		var r ReloadRequest
		if err := c.Bind(&r); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Cannot parse the request body.",
			})
		}
		if err := c.Validate(&r); err != nil {
			return err
		}

		body := map[string]any{}
		if r.ConfigPath != "" {
			body["path"] = r.ConfigPath
		}

		if _, err := mc.Put(c.Request().Context(), r.ApiUrl, "/configs?force=true", r.Secret, body); err != nil {
			return daemonError(c, err, "Failed to reload the configuration")
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"message": "Configuration reloaded successfully.",
		})
	}
}

// daemonError translates transport and control-API failures into operator
// readable messages while keeping the raw cause out of the response.
func daemonError(c echo.Context, err error, fallback string) error {
	status := http.StatusInternalServerError
	message := fallback

	var apiErr *mihomo.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.Status
		switch {
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			message = "The daemon rejected the API secret; check the secret configuration."
		case apiErr.Status == http.StatusBadRequest:
			message = "Invalid configuration: " + apiErr.Body
		default:
			message = fallback + ": " + apiErr.Error()
		}
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		message = "Connection to the daemon timed out; check that mihomo is running."
	case errors.Is(err, syscall.ECONNREFUSED):
		message = "Cannot reach the daemon; check the address and port."
	}

	return c.JSON(status, map[string]any{
		"success": false,
		"error":   message,
	})
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
