package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// getBookmarks backs the read API mentioned in §1 ("a read API over the
// persisted store"); q searches by substring (FTS5), categoryId filters
// by slug, neither returns the full set.
func (s *Server) getBookmarks(c echo.Context) error {
	if q := c.QueryParam("q"); q != "" {
		results, err := s.store.SearchBookmarks(q)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage_unavailable", "message": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"bookmarks": results})
	}

	var categorySlugs []string
	if slug := c.QueryParam("categoryId"); slug != "" {
		categorySlugs = []string{slug}
	}
	results, err := s.store.ListBookmarks(categorySlugs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage_unavailable", "message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookmarks": results})
}

func (s *Server) getHealth(c echo.Context) error {
	if err := s.store.DB().Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
