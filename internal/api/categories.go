package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"fury/internal/discover"
	"fury/internal/storage"
)

type bulkCategoryRequest struct {
	Categories      []*discover.DiscoveredCategory `json:"categories"`
	ReplaceExisting bool                            `json:"replaceExisting,omitempty"`
}

// postCategoriesBulk persists a discovered category forest in one
// transaction (spec §6, "Bulk-category endpoint").
func (s *Server) postCategoriesBulk(c echo.Context) error {
	var req bulkCategoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": err.Error()})
	}
	if len(req.Categories) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": "categories is required"})
	}

	result, err := s.store.CreateCategoriesBulk(toStorageTree(req.Categories), req.ReplaceExisting)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage_unavailable", "message": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"created":     result.Created,
		"updated":     result.Updated,
		"categoryMap": result.CategoryMap,
	})
}

type mergeRequest struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
}

// postCategoriesMerge unions two categories' keywords/children/bookmarks
// and deletes the source (spec §6, "Merge endpoint").
func (s *Server) postCategoriesMerge(c echo.Context) error {
	var req mergeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": err.Error()})
	}
	if req.SourceID == "" || req.TargetID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": "sourceId and targetId are required"})
	}
	if req.SourceID == req.TargetID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": "sourceId and targetId must differ"})
	}

	result, err := s.store.MergeCategories(req.SourceID, req.TargetID)
	if errors.Is(err, storage.ErrSameCategory) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": err.Error()})
	}
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage_unavailable", "message": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"mergedBookmarks": result.MergedBookmarks,
		"mergedKeywords":  result.MergedKeywords,
	})
}

func toStorageTree(tree []*discover.DiscoveredCategory) []*storage.CategoryTreeNode {
	var convert func(nodes []*discover.DiscoveredCategory) []*storage.CategoryTreeNode
	convert = func(nodes []*discover.DiscoveredCategory) []*storage.CategoryTreeNode {
		out := make([]*storage.CategoryTreeNode, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, &storage.CategoryTreeNode{
				TempID:      n.TempID,
				Name:        n.Name,
				Description: n.Description,
				Keywords:    n.Keywords,
				Children:    convert(n.Children),
			})
		}
		return out
	}
	return convert(tree)
}

func (s *Server) getCategories(c echo.Context) error {
	cats, err := s.store.ListCategories()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage_unavailable", "message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": cats})
}
