package v1

import (
	"net/http"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/btnalit/clash-cfg-edit/internal/document"
	"github.com/btnalit/clash-cfg-edit/internal/ftpx"
	"github.com/btnalit/clash-cfg-edit/internal/logger"
)

type FtpRequest struct {
	Host       string `json:"host" validate:"required"`
	Port       int    `json:"port"`
	User       string `json:"user" validate:"required"`
	Password   string `json:"password" validate:"required"`
	ConfigPath string `json:"configPath"`
}

type FtpSaveRequest struct {
	FtpRequest
	Config document.Document `json:"config" validate:"required"`
}

func (r *FtpRequest) config() ftpx.Config {
	return ftpx.Config{Host: r.Host, Port: r.Port, User: r.User, Password: r.Password}
}

func FtpConnect(l *logger.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var r FtpRequest
		if err := c.Bind(&r); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Cannot parse the request body.",
			})
		}
		if err := c.Validate(&r); err != nil {
			return err
		}

		conn, err := ftpx.Connect(r.config())
		if err != nil {
			return ftpError(c, l, err)
		}
		defer conn.Quit()

		dir := "/"
		if r.ConfigPath != "" {
			dir = path.Dir(r.ConfigPath)
		}

		files, err := conn.List(dir)
		if err != nil {
			return ftpError(c, l, err)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"message": "FTP connection established.",
			"files":   files,
		})
	}
}

func FtpRead(l *logger.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var r FtpRequest
		if err := c.Bind(&r); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Cannot parse the request body.",
			})
		}
		if err := c.Validate(&r); err != nil {
			return err
		}
		if r.ConfigPath == "" {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Config file path is required.",
			})
		}

		conn, err := ftpx.Connect(r.config())
		if err != nil {
			return ftpError(c, l, err)
		}
		defer conn.Quit()

		data, err := conn.Download(r.ConfigPath)
		if err != nil {
			return ftpError(c, l, err)
		}

		doc, err := document.FromYAML(data)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Invalid YAML: " + err.Error(),
			})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"content": string(data),
			"config":  doc,
			"message": "Configuration file read successfully.",
		})
	}
}

func FtpSave(l *logger.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var r FtpSaveRequest
		if err := c.Bind(&r); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Cannot parse the request body.",
			})
		}
		if err := c.Validate(&r); err != nil {
			return err
		}
		if r.ConfigPath == "" {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Config file path is required.",
			})
		}

		data, err := r.Config.YAML()
		if err != nil {
			return errors.WithStack(err)
		}

		conn, err := ftpx.Connect(r.config())
		if err != nil {
			return ftpError(c, l, err)
		}
		defer conn.Quit()

		if err = conn.Upload(r.ConfigPath, data); err != nil {
			return ftpError(c, l, err)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"message": "Configuration file saved successfully.",
		})
	}
}

func ftpError(c echo.Context, l *logger.Logger, err error) error {
	l.Error("ftp: operation failed", zap.Error(err))

	if errors.Is(err, ftpx.ErrUnavailable) {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "File not found or permission denied.",
		})
	}
	return c.JSON(http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   "FTP operation failed: " + err.Error(),
	})
}
