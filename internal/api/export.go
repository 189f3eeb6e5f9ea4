package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"fury/internal/exportfmt"
)

// getExport renders the persisted corpus as Netscape HTML or nested
// JSON, optionally filtered to one category's subtree (spec §6, "Export
// endpoint"). Rendering is buffered so a bad format or unknown category
// still produces a clean JSON error instead of a half-written body.
func (s *Server) getExport(c echo.Context) error {
	format := exportfmt.Format(c.QueryParam("format"))
	if format == "" {
		format = exportfmt.FormatChrome
	}
	categorySlug := c.QueryParam("categoryId")

	categories, err := s.store.ListCategories()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage_unavailable", "message": err.Error()})
	}
	bookmarks, err := s.store.ListBookmarks(nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage_unavailable", "message": err.Error()})
	}

	var buf bytes.Buffer
	if err := exportfmt.Render(&buf, format, categories, bookmarks, categorySlug); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": err.Error()})
	}

	filename := exportfmt.Filename(format, time.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}
