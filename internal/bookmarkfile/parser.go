// Package bookmarkfile parses Netscape-format bookmark export HTML (the
// format every major browser uses) into a flat, ordered sequence of
// bookmarks carrying folder breadcrumbs.
package bookmarkfile

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ErrMalformedInput is returned when no root bookmark list can be found
// in the input at all (spec §4.1, §7).
var ErrMalformedInput = errors.New("bookmarkfile: no root bookmark list found")

// Bookmark is one parsed entry: a URL, its display title, an optional
// description, and the folder breadcrumb it was found under.
type Bookmark struct {
	URL          string
	Title        string
	Description  string
	SourceFolder string
	DateAdded    time.Time
	Icon         string
}

// Parse walks the nested definition-list structure of a Netscape bookmark
// export and returns a flat ordered sequence of bookmarks. It is
// best-effort: malformed fragments are skipped rather than aborting the
// whole parse, and it only fails with ErrMalformedInput when there is no
// recognizable bookmark list at all.
func Parse(r io.Reader) ([]Bookmark, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("bookmarkfile: read input: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, fmt.Errorf("bookmarkfile: parse html: %w", err)
	}

	p := &parser{}
	if !p.hasRootList(doc) {
		return nil, ErrMalformedInput
	}

	p.walk(doc, nil)
	return p.out, nil
}

type parser struct {
	out []Bookmark
}

// hasRootList checks the document contains at least one <dl> element,
// the Netscape format's root list container.
func (p *parser) hasRootList(n *html.Node) bool {
	if n.Type == html.ElementNode && n.Data == "dl" {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if p.hasRootList(c) {
			return true
		}
	}
	return false
}

// walk performs the depth-first traversal, pushing onto the folder stack
// on entering an <h3> folder header and popping implicitly when its
// sibling <dl> is exhausted. folderPath is passed by value so sibling
// branches never see each other's pushes.
func (p *parser) walk(n *html.Node, folderPath []string) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.ElementNode && c.Data == "dl":
			p.walk(c, folderPath)
		case c.Type == html.ElementNode && c.Data == "dt":
			p.walkTerm(c, folderPath)
		default:
			p.walk(c, folderPath)
		}
	}
}

// walkTerm handles a single <dt>, which holds either a folder heading
// (<h3>, with its bookmarks/subfolders in a following <dl>) or a bookmark
// anchor (<a>), optionally followed by a <dd> description.
func (p *parser) walkTerm(dt *html.Node, folderPath []string) {
	for c := dt.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "h3":
			name := strings.TrimSpace(textContent(c))
			childPath := append(append([]string{}, folderPath...), name)
			if dl := findSiblingDL(c); dl != nil {
				p.walk(dl, childPath)
			}
			if dl := findDDList(dt); dl != nil {
				p.walk(dl, childPath)
			}
		case "a":
			bm := extractAnchor(c, folderPath)
			if bm.URL == "" {
				continue
			}
			bm.Description = findFollowingDescription(dt)
			p.out = append(p.out, bm)
		}
	}
}

func findSiblingDL(h3 *html.Node) *html.Node {
	for s := h3.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == "dl" {
			return s
		}
	}
	return nil
}

// findDDList covers the alternate Netscape layout where the subfolder's
// <dl> lives inside a <dd> sibling of the <dt>, rather than as a sibling
// of the <h3> itself.
func findDDList(dt *html.Node) *html.Node {
	for s := dt.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == "dd" {
			for c := s.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && c.Data == "dl" {
					return c
				}
			}
			return nil
		}
		if s.Type == html.ElementNode && s.Data == "dt" {
			// reached the next term without an intervening dd
			return nil
		}
	}
	return nil
}

// findFollowingDescription returns the text of an immediately-following
// <dd> sibling, before the next <dt>, as the bookmark's description.
func findFollowingDescription(dt *html.Node) string {
	for s := dt.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == "dd" {
			return strings.TrimSpace(textContent(s))
		}
		if s.Type == html.ElementNode && s.Data == "dt" {
			return ""
		}
	}
	return ""
}

func extractAnchor(a *html.Node, folderPath []string) Bookmark {
	bm := Bookmark{SourceFolder: strings.Join(folderPath, " / ")}

	for _, attr := range a.Attr {
		switch strings.ToLower(attr.Key) {
		case "href":
			bm.URL = strings.TrimSpace(attr.Val)
		case "add_date":
			if ts, err := strconv.ParseInt(attr.Val, 10, 64); err == nil {
				bm.DateAdded = time.Unix(ts, 0)
			}
		case "icon":
			bm.Icon = attr.Val
		}
	}

	bm.Title = strings.TrimSpace(textContent(a))
	if bm.Title == "" {
		bm.Title = bm.URL
	}

	return bm
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
