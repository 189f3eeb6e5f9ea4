package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"fury/internal/bookmarkfile"
	"fury/internal/discover"
)

type analyzeBookmark struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	SourceFolder string `json:"sourceFolder,omitempty"`
}

type analyzeRequest struct {
	BookmarksHTML string             `json:"bookmarksHtml,omitempty"`
	Bookmarks     []analyzeBookmark  `json:"bookmarks,omitempty"`
}

type analyzeValidation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type analyzeStats struct {
	TotalCategories        int   `json:"totalCategories"`
	MaxDepth               int   `json:"maxDepth"`
	CategoriesPerLevel     []int `json:"categoriesPerLevel"`
	TotalKeywords          int   `json:"totalKeywords"`
	TotalEstimatedBookmarks int  `json:"totalEstimatedBookmarks"`
}

type analyzeResult struct {
	DiscoveryResult []*discover.DiscoveredCategory `json:"discoveryResult"`
	Validation      analyzeValidation              `json:"validation"`
	Stats           analyzeStats                   `json:"stats"`
	BookmarkCount   int                             `json:"bookmarkCount"`
}

// postAnalyze runs taxonomy discovery synchronously over caller-supplied
// bookmarks and reports the discovered tree plus its stats (spec §6,
// "Analyze endpoint"). The validation block is always reported as valid
// with empty errors and warnings; no hierarchy checks run here beyond the
// depth flattening and slug disambiguation Discover already applies.
func (s *Server) postAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": err.Error()})
	}

	var sample []discover.SampledBookmark
	topHosts := make(map[string]int)
	folderCounts := make(map[string]int)

	if req.BookmarksHTML != "" {
		parsed, err := bookmarkfile.Parse(strings.NewReader(req.BookmarksHTML))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": err.Error()})
		}
		for _, bm := range parsed {
			host := hostOf(bm.URL)
			sample = append(sample, discover.SampledBookmark{Title: bm.Title, Host: host, SourceFolder: bm.SourceFolder})
			topHosts[host]++
			if bm.SourceFolder != "" {
				folderCounts[bm.SourceFolder]++
			}
		}
	}
	for _, bm := range req.Bookmarks {
		host := hostOf(bm.URL)
		sample = append(sample, discover.SampledBookmark{Title: bm.Title, Host: host, SourceFolder: bm.SourceFolder})
		topHosts[host]++
		if bm.SourceFolder != "" {
			folderCounts[bm.SourceFolder]++
		}
	}

	if len(sample) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "no bookmarks provided"})
	}

	tree := s.discoverer.Discover(c.Request().Context(), sample, topHosts, folderCounts)
	stats := computeStats(tree)

	result := analyzeResult{
		DiscoveryResult: tree,
		Validation:      analyzeValidation{Valid: true, Errors: []string{}, Warnings: []string{}},
		Stats:           stats,
		BookmarkCount:   len(sample),
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "result": result})
}

func computeStats(tree []*discover.DiscoveredCategory) analyzeStats {
	var stats analyzeStats
	levels := make(map[int]int)

	var walk func(nodes []*discover.DiscoveredCategory)
	walk = func(nodes []*discover.DiscoveredCategory) {
		for _, n := range nodes {
			stats.TotalCategories++
			stats.TotalKeywords += len(n.Keywords)
			stats.TotalEstimatedBookmarks += n.EstimatedCount
			levels[n.Depth]++
			if n.Depth > stats.MaxDepth {
				stats.MaxDepth = n.Depth
			}
			walk(n.Children)
		}
	}
	walk(tree)

	stats.CategoriesPerLevel = make([]int, stats.MaxDepth+1)
	for depth, count := range levels {
		if depth >= 0 && depth < len(stats.CategoriesPerLevel) {
			stats.CategoriesPerLevel[depth] = count
		}
	}
	return stats
}

func hostOf(raw string) string {
	const prefix = "://"
	idx := strings.Index(raw, prefix)
	if idx < 0 {
		return ""
	}
	rest := raw[idx+len(prefix):]
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		return rest[:i]
	}
	return rest
}
