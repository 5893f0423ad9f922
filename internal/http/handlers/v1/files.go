package v1

import (
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"github.com/btnalit/clash-cfg-edit/internal/document"
	"github.com/btnalit/clash-cfg-edit/internal/storage"
)

type FileSaveRequest struct {
	Filename string            `json:"filename" validate:"required"`
	Config   document.Document `json:"config" validate:"required"`
}

type FileSaveLocalRequest struct {
	Prefix string            `json:"prefix"`
	Config document.Document `json:"config" validate:"required"`
}

func FilesIndex(store *storage.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		files, err := store.List()
		if err != nil {
			return errors.WithStack(err)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"files":   files,
		})
	}
}

func FilesUpload(store *storage.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		header, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "No file uploaded.",
			})
		}

		opened, err := header.Open()
		if err != nil {
			return errors.WithStack(err)
		}
		defer func() { _ = opened.Close() }()

		data, err := io.ReadAll(opened)
		if err != nil {
			return errors.WithStack(err)
		}

		if _, err = document.FromYAML(data); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Invalid YAML file: " + err.Error(),
			})
		}

		name, err := store.SaveUpload(header.Filename, data)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidName) {
				return c.JSON(http.StatusBadRequest, map[string]any{
					"success": false,
					"error":   "Only YAML files are allowed.",
				})
			}
			return storageError(c, err)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"file": map[string]any{
				"name": name,
				"path": name,
				"size": len(data),
			},
		})
	}
}

func FilesShow(store *storage.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := store.Read(c.Param("filename"))
		if err != nil {
			return storageError(c, err)
		}

		doc, err := document.FromYAML(data)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Invalid YAML: " + err.Error(),
			})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success":  true,
			"filename": c.Param("filename"),
			"content":  string(data),
			"config":   doc,
		})
	}
}

func FilesSave(store *storage.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var r FileSaveRequest
		if err := c.Bind(&r); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Cannot parse the request body.",
			})
		}
		if err := c.Validate(&r); err != nil {
			return err
		}

		if !storage.YamlName(r.Filename) {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Filename must end with .yaml or .yml.",
			})
		}

		data, err := r.Config.YAML()
		if err != nil {
			return errors.WithStack(err)
		}

		if err = store.Write(r.Filename, data); err != nil {
			return storageError(c, err)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success":  true,
			"message":  "File saved successfully.",
			"filename": r.Filename,
		})
	}
}

// FilesSaveLocal backs up a document under a timestamped name; used when
// pulling configs from FTP or the live daemon.
func FilesSaveLocal(store *storage.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var r FileSaveLocalRequest
		if err := c.Bind(&r); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Cannot parse the request body.",
			})
		}
		if err := c.Validate(&r); err != nil {
			return err
		}

		if r.Prefix == "" {
			r.Prefix = "config"
		}

		data, err := r.Config.YAML()
		if err != nil {
			return errors.WithStack(err)
		}

		name, err := store.SaveTimestamped(r.Prefix, data)
		if err != nil {
			return storageError(c, err)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success":  true,
			"message":  "Configuration saved locally.",
			"filename": name,
		})
	}
}

func FilesDelete(store *storage.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Delete(c.Param("filename")); err != nil {
			return storageError(c, err)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"message": "File deleted successfully.",
		})
	}
}

func storageError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Invalid filename.",
		})
	case errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "File not found.",
		})
	case errors.Is(err, storage.ErrDenied):
		return c.JSON(http.StatusForbidden, map[string]any{
			"success": false,
			"error":   "Access denied.",
		})
	}
	return errors.WithStack(err)
}
