// Package exportfmt renders the persisted bookmark corpus back out as a
// Netscape bookmark file or a nested JSON tree (spec §4.10).
package exportfmt

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"fury/internal/storage"
)

// Format selects the output shape requested by the export endpoint's
// format query parameter. Firefox and Safari both render as Netscape
// HTML; only Chrome renders as JSON.
type Format string

const (
	FormatChrome  Format = "chrome"
	FormatFirefox Format = "firefox"
	FormatSafari  Format = "safari"
)

var ErrUnknownFormat = errors.New("exportfmt: unknown format")

// Extension returns the file extension an exported format uses.
func (f Format) Extension() string {
	if f == FormatChrome {
		return "json"
	}
	return "html"
}

// ContentType returns the MIME type for the export endpoint's response.
func (f Format) ContentType() string {
	if f == FormatChrome {
		return "application/json"
	}
	return "text/html"
}

func (f Format) valid() bool {
	return f == FormatChrome || f == FormatFirefox || f == FormatSafari
}

// Filename builds the Content-Disposition attachment name, stamped with
// the given date (caller passes the current date; exportfmt never calls
// time.Now itself so callers can test deterministically).
func Filename(f Format, date time.Time) string {
	return fmt.Sprintf("fury_bookmarks_%s_%s.%s", f, date.Format("2006-01-02"), f.Extension())
}

// tree is the in-memory category forest, built bottom-up from the flat
// rows storage.ListCategories/ListBookmarks returns, mirroring C1's
// folder-path walk in reverse.
type tree struct {
	byCategory map[string]*categoryNode
	roots      []*categoryNode
	unfiled    []*storage.Bookmark
}

type categoryNode struct {
	cat       *storage.Category
	children  []*categoryNode
	bookmarks []*storage.Bookmark
}

func buildTree(categories []*storage.Category, bookmarks []*storage.Bookmark) *tree {
	t := &tree{byCategory: make(map[string]*categoryNode, len(categories))}
	for _, c := range categories {
		t.byCategory[c.Slug] = &categoryNode{cat: c}
	}
	for _, n := range t.byCategory {
		if n.cat.ParentSlug == nil {
			t.roots = append(t.roots, n)
			continue
		}
		if parent, ok := t.byCategory[*n.cat.ParentSlug]; ok {
			parent.children = append(parent.children, n)
		} else {
			t.roots = append(t.roots, n)
		}
	}
	for _, n := range t.roots {
		sortChildren(n)
	}
	sort.Slice(t.roots, func(i, j int) bool { return t.roots[i].cat.Name < t.roots[j].cat.Name })

	for _, bm := range bookmarks {
		if bm.CategorySlug == nil {
			t.unfiled = append(t.unfiled, bm)
			continue
		}
		if n, ok := t.byCategory[*bm.CategorySlug]; ok {
			n.bookmarks = append(n.bookmarks, bm)
		} else {
			t.unfiled = append(t.unfiled, bm)
		}
	}
	return t
}

func sortChildren(n *categoryNode) {
	sort.Slice(n.children, func(i, j int) bool { return n.children[i].cat.Name < n.children[j].cat.Name })
	for _, c := range n.children {
		sortChildren(c)
	}
}

// hasBookmarks reports whether n or any descendant holds a bookmark; the
// base render (spec §4.10) only emits categories satisfying this.
func (n *categoryNode) hasBookmarks() bool {
	if len(n.bookmarks) > 0 {
		return true
	}
	for _, c := range n.children {
		if c.hasBookmarks() {
			return true
		}
	}
	return false
}

// ancestors walks parent_slug up to the root, root first.
func (t *tree) ancestors(slug string) []*categoryNode {
	var chain []*categoryNode
	cur, ok := t.byCategory[slug]
	for ok {
		chain = append([]*categoryNode{cur}, chain...)
		if cur.cat.ParentSlug == nil {
			break
		}
		cur, ok = t.byCategory[*cur.cat.ParentSlug]
	}
	return chain
}

// scopedRoots returns the roots to render: the whole forest pruned to
// categories with in-scope bookmarks when filterSlug is empty, or the
// filtered category's subtree plus its ancestor chain when set (spec
// §4.10, "only the chosen category's subtree and its ancestors appear").
func (t *tree) scopedRoots(filterSlug string) ([]*categoryNode, []*storage.Bookmark, error) {
	if filterSlug == "" {
		return pruneEmpty(t.roots), t.unfiled, nil
	}

	target, ok := t.byCategory[filterSlug]
	if !ok {
		return nil, nil, fmt.Errorf("exportfmt: unknown category %q", filterSlug)
	}
	chain := t.ancestors(filterSlug)

	// Rebuild the ancestor chain as a single-branch path down to target,
	// with target's own (unpruned) subtree attached at the bottom.
	var wrap func(i int) *categoryNode
	wrap = func(i int) *categoryNode {
		if i == len(chain)-1 {
			return target
		}
		return &categoryNode{cat: chain[i].cat, children: []*categoryNode{wrap(i + 1)}}
	}
	return []*categoryNode{wrap(0)}, nil, nil
}

func pruneEmpty(nodes []*categoryNode) []*categoryNode {
	var out []*categoryNode
	for _, n := range nodes {
		if !n.hasBookmarks() {
			continue
		}
		out = append(out, &categoryNode{
			cat:       n.cat,
			children:  pruneEmpty(n.children),
			bookmarks: n.bookmarks,
		})
	}
	return out
}

// Render writes the requested format to w. filterSlug restricts output
// to one category's subtree and its ancestor chain; empty renders the
// whole corpus.
func Render(w io.Writer, f Format, categories []*storage.Category, bookmarks []*storage.Bookmark, filterSlug string) error {
	if !f.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}

	t := buildTree(categories, bookmarks)
	roots, unfiled, err := t.scopedRoots(filterSlug)
	if err != nil {
		return err
	}

	if f == FormatChrome {
		return renderJSON(w, roots, unfiled)
	}
	return renderHTML(w, roots, unfiled)
}

// --- JSON rendering ---

type jsonNode struct {
	Type     string      `json:"type"`
	Name     string      `json:"name"`
	URL      string      `json:"url,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

type jsonDocument struct {
	BookmarkBar *jsonNode `json:"bookmark_bar"`
	Other       *jsonNode `json:"other"`
}

func renderJSON(w io.Writer, roots []*categoryNode, unfiled []*storage.Bookmark) error {
	bar := &jsonNode{Type: "folder", Name: "Bookmarks Bar"}
	for _, bm := range unfiled {
		bar.Children = append(bar.Children, bookmarkJSONNode(bm))
	}

	other := &jsonNode{Type: "folder", Name: "Other Bookmarks"}
	for _, n := range roots {
		other.Children = append(other.Children, categoryJSONNode(n))
	}

	doc := jsonDocument{BookmarkBar: bar, Other: other}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func categoryJSONNode(n *categoryNode) *jsonNode {
	node := &jsonNode{Type: "folder", Name: n.cat.Name}
	for _, bm := range n.bookmarks {
		node.Children = append(node.Children, bookmarkJSONNode(bm))
	}
	for _, c := range n.children {
		node.Children = append(node.Children, categoryJSONNode(c))
	}
	return node
}

func bookmarkJSONNode(bm *storage.Bookmark) *jsonNode {
	name := bm.Title
	if name == "" {
		name = bm.RawURL
	}
	return &jsonNode{Type: "url", Name: name, URL: bm.RawURL}
}

// --- Netscape HTML rendering ---

const htmlDocumentTemplate = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<!-- This is an automatically generated file. -->
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
{{range .Unfiled}}    <DT><A HREF="{{.URL}}" ADD_DATE="{{.AddDate}}">{{.Title}}</A>
{{end}}{{range .Roots}}{{template "folder" .}}{{end}}</DL><p>
`

const htmlFolderTemplate = `{{define "folder"}}    <DT><H3 ADD_DATE="0">{{.Name}}</H3>
    <DL><p>
{{range .Bookmarks}}        <DT><A HREF="{{.URL}}" ADD_DATE="{{.AddDate}}">{{.Title}}</A>
{{end}}{{range .Children}}{{template "folder" .}}{{end}}    </DL><p>
{{end}}`

type htmlBookmark struct {
	Title   string
	URL     string
	AddDate int64
}

type htmlFolder struct {
	Name      string
	Bookmarks []htmlBookmark
	Children  []htmlFolder
}

type htmlDocument struct {
	Unfiled []htmlBookmark
	Roots   []htmlFolder
}

var htmlTmpl = template.Must(template.Must(template.New("document").Parse(htmlDocumentTemplate)).Parse(htmlFolderTemplate))

func renderHTML(w io.Writer, roots []*categoryNode, unfiled []*storage.Bookmark) error {
	doc := htmlDocument{}
	for _, bm := range unfiled {
		doc.Unfiled = append(doc.Unfiled, toHTMLBookmark(bm))
	}
	for _, n := range roots {
		doc.Roots = append(doc.Roots, toHTMLFolder(n))
	}
	return htmlTmpl.ExecuteTemplate(w, "document", doc)
}

func toHTMLFolder(n *categoryNode) htmlFolder {
	folder := htmlFolder{Name: n.cat.Name}
	for _, bm := range n.bookmarks {
		folder.Bookmarks = append(folder.Bookmarks, toHTMLBookmark(bm))
	}
	for _, c := range n.children {
		folder.Children = append(folder.Children, toHTMLFolder(c))
	}
	return folder
}

func toHTMLBookmark(bm *storage.Bookmark) htmlBookmark {
	title := bm.Title
	if title == "" {
		title = bm.RawURL
	}
	addDate := bm.CreatedAt.Unix()
	if bm.CreatedAt.IsZero() {
		addDate = 0
	}
	return htmlBookmark{Title: title, URL: bm.RawURL, AddDate: addDate}
}
