package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"fury/internal/discover"
	"fury/internal/enrich"
	"fury/internal/storage"
	"fury/internal/taxonomy"
)

func newTestServer(t *testing.T) (*echo.Echo, *storage.Store) {
	t.Helper()
	store, err := storage.Open("file:" + t.TempDir() + "/fury.db")
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	e := echo.New()
	srv := NewServer(store, enrich.New(), taxonomy.New(taxonomy.BuiltinTaxonomy()), discover.NewDiscoverer(), discover.NewAssigner())
	srv.Register(e)
	return e, store
}

func TestGetHealthReportsOK(t *testing.T) {
	e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestBulkCategoryThenMergeThenExport(t *testing.T) {
	e, store := newTestServer(t)

	body := `{"categories":[{"tempId":"t0","name":"Gadgets","keywords":["gadget"]},{"tempId":"t1","name":"Electronics","keywords":["electronics"]}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/categories/bulk", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var bulkResp struct {
		CategoryMap map[string]string `json:"categoryMap"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &bulkResp); err != nil {
		t.Fatalf("unmarshal bulk response: %v", err)
	}

	_, _, err := store.UpsertBookmark("https://example.com/gadget", storage.BookmarkFields{
		RawURL: "https://example.com/gadget", Title: "A Gadget", CategorySlug: ptr(bulkResp.CategoryMap["t0"]),
	})
	if err != nil {
		t.Fatalf("UpsertBookmark() error = %v", err)
	}

	mergeBody := `{"sourceId":"gadgets","targetId":"electronics"}`
	mreq := httptest.NewRequest(http.MethodPost, "/api/categories/merge", strings.NewReader(mergeBody))
	mreq.Header.Set(echo.HeaderContentType, "application/json")
	mrec := httptest.NewRecorder()
	e.ServeHTTP(mrec, mreq)
	if mrec.Code != http.StatusOK {
		t.Fatalf("merge status = %d, body = %s", mrec.Code, mrec.Body.String())
	}

	ereq := httptest.NewRequest(http.MethodGet, "/api/export?format=chrome", nil)
	erec := httptest.NewRecorder()
	e.ServeHTTP(erec, ereq)
	if erec.Code != http.StatusOK {
		t.Fatalf("export status = %d", erec.Code)
	}
	if !strings.Contains(erec.Body.String(), "Electronics") {
		t.Errorf("expected exported JSON to mention Electronics, got %s", erec.Body.String())
	}
	if disp := erec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(disp, "fury_bookmarks_chrome_") {
		t.Errorf("Content-Disposition = %q", disp)
	}
}

func TestPostImportStreamsSSEEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><title>Example</title></html>`))
	}))
	defer srv.Close()

	e, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "bookmarks.html")
	fw.Write([]byte(`<!DOCTYPE NETSCAPE-Bookmark-file-1><DL><p><DT><A HREF="` + srv.URL + `/">Example</A></DL><p>`))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	out := rec.Body.String()
	if !strings.Contains(out, "event: init") {
		t.Errorf("expected an init event, got %s", out)
	}
	if !strings.Contains(out, "event: complete") {
		t.Errorf("expected a complete event, got %s", out)
	}
}

func ptr(s string) *string { return &s }
