// Package api wires the import/analyze/categorize/export/read surface
// onto Echo, generalizing the teacher's hand-written handler bodies
// (spec §6) since no OpenAPI document for this module was retrieved to
// regenerate a transport layer from.
package api

import (
	"github.com/labstack/echo/v4"

	"fury/internal/discover"
	"fury/internal/enrich"
	"fury/internal/importer"
	"fury/internal/storage"
	"fury/internal/taxonomy"
)

// Server holds the components every handler needs.
type Server struct {
	store        *storage.Store
	orchestrator *importer.Orchestrator
	discoverer   *discover.Discoverer
	assigner     *discover.Assigner
	classifier   *taxonomy.Classifier
	fetcher      *enrich.Fetcher
}

// NewServer wires a Server from its component parts.
func NewServer(store *storage.Store, fetcher *enrich.Fetcher, classifier *taxonomy.Classifier, discoverer *discover.Discoverer, assigner *discover.Assigner) *Server {
	return &Server{
		store:       store,
		orchestrator: importer.New(store, fetcher, classifier, discoverer, assigner),
		discoverer:  discoverer,
		assigner:    assigner,
		classifier:  classifier,
		fetcher:     fetcher,
	}
}

// Register mounts every route on e, mirroring cmd/server/main.go's
// flat route-list style.
func (s *Server) Register(e *echo.Echo) {
	e.POST("/api/import", s.postImport)
	e.POST("/api/analyze", s.postAnalyze)
	e.POST("/api/categories/bulk", s.postCategoriesBulk)
	e.POST("/api/categories/merge", s.postCategoriesMerge)
	e.GET("/api/export", s.getExport)

	e.GET("/api/bookmarks", s.getBookmarks)
	e.GET("/api/categories", s.getCategories)
	e.GET("/api/health", s.getHealth)
}
