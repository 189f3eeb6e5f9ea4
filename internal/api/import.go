package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"fury/internal/discover"
	"fury/internal/importer"
)

// postImport streams the import pipeline's progress as SSE frames
// (spec §6, "Streaming import endpoint"). The response is written
// directly to the underlying ResponseWriter so each event flushes as
// soon as it is produced; a disconnected client turns Flush into a
// no-op rather than an error, matching §5's "non-blocking emitter."
func (s *Server) postImport(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": "no file provided"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": err.Error()})
	}
	defer file.Close()

	req := importer.Request{FileName: fileHeader.Filename, Content: file}

	if raw := c.FormValue("customCategories"); raw != "" {
		var tree []*discover.DiscoveredCategory
		if jsonErr := json.Unmarshal([]byte(raw), &tree); jsonErr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": "customCategories: " + jsonErr.Error()})
		}
		req.CustomTaxonomy = tree
		req.UseCustomTaxonomy = true
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(ev importer.Event) {
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if _, err := w.Write([]byte("event: " + ev.Name() + "\ndata: " + string(payload) + "\n\n")); err != nil {
			return
		}
		w.Flush()
	}

	_ = s.orchestrator.Run(c.Request().Context(), req, emit)
	return nil
}
