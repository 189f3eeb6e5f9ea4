package importer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fury/internal/enrich"
	"fury/internal/storage"
	"fury/internal/taxonomy"
)

const sampleBookmarksHTML = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
	<DT><A HREF="%s">Go Concurrency Patterns</A>
	<DT><A HREF="%s">Go Concurrency Patterns</A>
	<DT><A HREF="https://unreachable.invalid/x">Dead Link</A>
</DL><p>
`

func newTestOrchestrator(t *testing.T, fetcher *enrich.Fetcher) (*Orchestrator, *storage.Store) {
	t.Helper()
	store, err := storage.Open("file:" + t.TempDir() + "/fury.db")
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	classifier := taxonomy.New([]taxonomy.Entry{
		{Name: "Development", Keywords: []string{"concurrency", "golang"}, Weight: 10, RequireWordBoundary: true},
	})

	o := New(store, fetcher, classifier, nil, nil)
	return o, store
}

func TestRunPathADedupesValidatesAndUpserts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Go Concurrency</title></head><body>goroutines and channels</body></html>`))
	}))
	defer srv.Close()

	fetcher := enrich.New()
	o, store := newTestOrchestrator(t, fetcher)

	html := sampleText(srv.URL)
	var events []Event
	err := o.Run(context.Background(), Request{
		FileName: "bookmarks.html",
		Content:  strings.NewReader(html),
	}, func(e Event) { events = append(events, e) })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var complete *CompleteEvent
	for _, e := range events {
		if ce, ok := e.(CompleteEvent); ok {
			complete = &ce
		}
	}
	if complete == nil {
		t.Fatal("expected a complete event")
	}
	if complete.DuplicatesInFile != 1 {
		t.Errorf("DuplicatesInFile = %d, want 1", complete.DuplicatesInFile)
	}
	// skipped folds in the in-file duplicate alongside the unreachable
	// link, so successful+failed+skipped == TotalInFile holds.
	if complete.SkippedBookmarks != 2 {
		t.Errorf("SkippedBookmarks = %d, want 2 (unreachable link + in-file duplicate)", complete.SkippedBookmarks)
	}
	if complete.SuccessfulBookmarks != 1 {
		t.Errorf("SuccessfulBookmarks = %d, want 1", complete.SuccessfulBookmarks)
	}
	if complete.ImportSessionID == "" {
		t.Error("expected a non-empty import session id")
	}
	if got, want := complete.SuccessfulBookmarks+complete.FailedBookmarks+complete.SkippedBookmarks, complete.TotalInFile; got != want {
		t.Errorf("successful+failed+skipped = %d, want %d (TotalInFile)", got, want)
	}

	sess, err := store.GetImportSession(complete.ImportSessionID)
	if err != nil {
		t.Fatalf("GetImportSession() error = %v", err)
	}
	if sess.Successful != 1 {
		t.Errorf("session Successful = %d, want 1", sess.Successful)
	}
	if sess.Skipped != 2 {
		t.Errorf("session Skipped = %d, want 2", sess.Skipped)
	}
}

func TestRunEmitsSkippedEventForUnreachableTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><title>ok</title></html>`))
	}))
	defer srv.Close()

	fetcher := enrich.New()
	o, _ := newTestOrchestrator(t, fetcher)

	var skipped []SkippedEvent
	err := o.Run(context.Background(), Request{
		FileName: "b.html",
		Content:  strings.NewReader(sampleText(srv.URL)),
	}, func(e Event) {
		if se, ok := e.(SkippedEvent); ok {
			skipped = append(skipped, se)
		}
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(skipped) != 1 {
		t.Fatalf("len(skipped) = %d, want 1", len(skipped))
	}
	if skipped[0].URL != "https://unreachable.invalid/x" {
		t.Errorf("skipped URL = %q", skipped[0].URL)
	}
}

func sampleText(url string) string {
	target := url + "/"
	return fmt.Sprintf(sampleBookmarksHTML, target, target)
}
