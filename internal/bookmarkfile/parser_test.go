package bookmarkfile

import (
	"strings"
	"testing"
)

const sampleExport = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><A HREF="https://example.com/" ADD_DATE="1700000000">Example Home</A>
    <DT><H3>Dev</H3>
    <DL><p>
        <DT><A HREF="https://go.dev/doc">Go Docs</A>
        <DD>Official documentation.
        <DT><H3>Nested</H3>
        <DL><p>
            <DT><A HREF="https://pkg.go.dev/">pkg.go.dev</A>
        </DL><p>
    </DL><p>
</DL><p>
`

func validateBookmark(t *testing.T, got Bookmark, wantURL, wantTitle, wantFolder string) {
	t.Helper()
	if got.URL != wantURL {
		t.Errorf("URL = %q, want %q", got.URL, wantURL)
	}
	if got.Title != wantTitle {
		t.Errorf("Title = %q, want %q", got.Title, wantTitle)
	}
	if got.SourceFolder != wantFolder {
		t.Errorf("SourceFolder = %q, want %q", got.SourceFolder, wantFolder)
	}
}

func TestParseNestedFolders(t *testing.T) {
	bms, err := Parse(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(bms) != 3 {
		t.Fatalf("got %d bookmarks, want 3: %+v", len(bms), bms)
	}

	validateBookmark(t, bms[0], "https://example.com/", "Example Home", "")
	validateBookmark(t, bms[1], "https://go.dev/doc", "Go Docs", "Dev")
	if bms[1].Description != "Official documentation." {
		t.Errorf("Description = %q, want %q", bms[1].Description, "Official documentation.")
	}
	validateBookmark(t, bms[2], "https://pkg.go.dev/", "pkg.go.dev", "Dev / Nested")

	if bms[0].DateAdded.Unix() != 1700000000 {
		t.Errorf("DateAdded = %v, want unix 1700000000", bms[0].DateAdded)
	}
}

func TestParseMalformedInput(t *testing.T) {
	_, err := Parse(strings.NewReader("<html><body>not a bookmark file</body></html>"))
	if err != ErrMalformedInput {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
}

func TestParseSkipsAnchorsWithoutHref(t *testing.T) {
	src := `<DL><p><DT><A>No href here</A></DL>`
	bms, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(bms) != 0 {
		t.Fatalf("got %d bookmarks, want 0: %+v", len(bms), bms)
	}
}

func TestParseTitleFallsBackToURL(t *testing.T) {
	src := `<DL><p><DT><A HREF="https://example.com/empty-title"></A></DL>`
	bms, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(bms) != 1 {
		t.Fatalf("got %d bookmarks, want 1", len(bms))
	}
	if bms[0].Title != bms[0].URL {
		t.Errorf("Title = %q, want fallback to URL %q", bms[0].Title, bms[0].URL)
	}
}
