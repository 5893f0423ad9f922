package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/btnalit/clash-cfg-edit/internal/document"
)

type ConfigParseRequest struct {
	Content string `json:"content" validate:"required"`
}

type ConfigValidateRequest struct {
	Config document.Document `json:"config" validate:"required"`
}

func ConfigParse() echo.HandlerFunc {
	return func(c echo.Context) error {
		var r ConfigParseRequest
		if err := c.Bind(&r); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Cannot parse the request body.",
			})
		}
		if err := c.Validate(&r); err != nil {
			return err
		}

		doc, err := document.FromYAML([]byte(r.Content))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Invalid YAML: " + err.Error(),
			})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"config":  doc,
		})
	}
}

func ConfigValidate() echo.HandlerFunc {
	return func(c echo.Context) error {
		var r ConfigValidateRequest
		if err := c.Bind(&r); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Cannot parse the request body.",
			})
		}
		if err := c.Validate(&r); err != nil {
			return err
		}

		result := document.Validate(r.Config)

		return c.JSON(http.StatusOK, map[string]any{
			"success":  true,
			"valid":    result.Valid,
			"errors":   result.Errors,
			"warnings": result.Warnings,
		})
	}
}
