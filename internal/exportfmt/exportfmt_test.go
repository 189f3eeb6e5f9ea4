package exportfmt

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"fury/internal/storage"
)

func strPtr(s string) *string { return &s }

func sampleCorpus() ([]*storage.Category, []*storage.Bookmark) {
	categories := []*storage.Category{
		{Slug: "science", Name: "Science"},
		{Slug: "physics", Name: "Physics", ParentSlug: strPtr("science")},
		{Slug: "empty-leaf", Name: "Empty Leaf", ParentSlug: strPtr("science")},
	}
	bookmarks := []*storage.Bookmark{
		{RawURL: "https://example.com/quantum", Title: "Quantum Basics", CategorySlug: strPtr("physics"), CreatedAt: time.Unix(1000, 0)},
		{RawURL: "https://example.com/uncategorized", Title: "No Category", CreatedAt: time.Unix(2000, 0)},
	}
	return categories, bookmarks
}

func TestRenderJSONPrunesCategoriesWithoutBookmarks(t *testing.T) {
	categories, bookmarks := sampleCorpus()
	var buf bytes.Buffer
	if err := Render(&buf, FormatChrome, categories, bookmarks, ""); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var doc jsonDocument
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if len(doc.BookmarkBar.Children) != 1 {
		t.Fatalf("bookmark_bar children = %d, want 1", len(doc.BookmarkBar.Children))
	}
	if doc.BookmarkBar.Children[0].URL != "https://example.com/uncategorized" {
		t.Errorf("unfiled bookmark URL = %q", doc.BookmarkBar.Children[0].URL)
	}

	if len(doc.Other.Children) != 1 {
		t.Fatalf("other children = %d, want 1", len(doc.Other.Children))
	}
	science := doc.Other.Children[0]
	if science.Name != "Science" {
		t.Fatalf("root folder = %q, want Science", science.Name)
	}
	if len(science.Children) != 1 || science.Children[0].Name != "Physics" {
		t.Fatalf("Science children = %+v, want only Physics (Empty Leaf pruned)", science.Children)
	}
}

func TestRenderHTMLEmitsNestedFolders(t *testing.T) {
	categories, bookmarks := sampleCorpus()
	var buf bytes.Buffer
	if err := Render(&buf, FormatFirefox, categories, bookmarks, ""); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<H3 ADD_DATE=\"0\">Science</H3>") {
		t.Error("expected a Science folder heading")
	}
	if !strings.Contains(out, `HREF="https://example.com/quantum" ADD_DATE="1000"`) {
		t.Error("expected the quantum bookmark with its ADD_DATE")
	}
	if strings.Contains(out, "Empty Leaf") {
		t.Error("expected Empty Leaf to be pruned from HTML output")
	}
}

func TestRenderFilterByCategoryKeepsAncestorChainOnly(t *testing.T) {
	categories, bookmarks := sampleCorpus()
	var buf bytes.Buffer
	if err := Render(&buf, FormatChrome, categories, bookmarks, "physics"); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var doc jsonDocument
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(doc.Other.Children) != 1 || doc.Other.Children[0].Name != "Science" {
		t.Fatalf("expected Science ancestor wrapping Physics, got %+v", doc.Other.Children)
	}
	physics := doc.Other.Children[0].Children[0]
	if physics.Name != "Physics" || len(physics.Children) != 1 {
		t.Fatalf("expected Physics with its one bookmark, got %+v", physics)
	}
}

func TestRenderUnknownFormatErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, Format("edge"), nil, nil, ""); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("err = %v, want ErrUnknownFormat", err)
	}
}

func TestFilenameIncludesFormatAndDate(t *testing.T) {
	got := Filename(FormatChrome, time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC))
	want := "fury_bookmarks_chrome_2026-07-31.json"
	if got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}
