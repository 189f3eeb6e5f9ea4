// Package enrich validates bookmark targets and fetches lightweight page
// metadata used by the classifier and taxonomy discoverer.
package enrich

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	userAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36 fury-bookmarks/1.0"
	headTimeout       = 5 * time.Second
	getValidateTimeout = 8 * time.Second
	fetchTimeout      = 10 * time.Second
	maxRedirects      = 5
	maxBodyRunes      = 5000
)

var stripSelectors = "script, style, nav, footer, header, aside, noscript, iframe, svg"

// Metadata is the best-effort page summary extracted by Fetch.
type Metadata struct {
	Title        string
	Description  string
	OGTitle      string
	OGDescription string
	OGImage      string
	BodySnippet  string
}

// Fetcher validates and fetches bookmark targets, pacing outbound requests
// through a shared rate limiter (spec §4.4, §5).
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// New builds a Fetcher with the spec's default pacing of 2 requests/sec.
func New() *Fetcher {
	return &Fetcher{
		client:  &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(2.0), 1),
	}
}

// SetRateLimit overrides the default outbound request pacing.
func (f *Fetcher) SetRateLimit(requestsPerSecond float64) {
	f.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}

var internalHostPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^localhost$`),
	regexp.MustCompile(`\.local$`),
	regexp.MustCompile(`\.internal$`),
}

var internalSchemes = map[string]bool{
	"chrome":            true,
	"chrome-extension":  true,
	"moz-extension":     true,
	"about":             true,
	"file":              true,
	"edge":              true,
	"safari-extension":  true,
}

// Validate reports whether raw is reachable. Internal addresses (loopback,
// RFC-1918, .local/.internal hosts, browser-extension schemes) are
// accepted without a network probe. Otherwise it sends a HEAD request
// first, falling back to a header-only GET on failure; status >= 500 is
// always treated as invalid (spec §4.4).
func (f *Fetcher) Validate(ctx context.Context, raw string) bool {
	scheme, host := schemeAndHost(raw)
	if internalSchemes[scheme] || isInternalHost(host) {
		return true
	}

	if f.limiter != nil {
		_ = f.limiter.Wait(ctx)
	}

	if ok, done := f.probe(ctx, http.MethodHead, raw, headTimeout); done {
		return ok
	}

	ok, _ := f.probe(ctx, http.MethodGet, raw, getValidateTimeout)
	return ok
}

// probe performs one validation request. The second return value is false
// when the request itself failed to complete (network error), signaling
// the caller should retry with a different method.
func (f *Fetcher) probe(ctx context.Context, method, raw string, timeout time.Duration) (ok bool, completed bool) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, raw, nil)
	if err != nil {
		return false, true
	}
	req.Header.Set("User-Agent", userAgent)

	client := &http.Client{
		CheckRedirect: redirectPolicy,
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, false
	}
	defer resp.Body.Close()
	_, _ = io.CopyN(io.Discard, resp.Body, 0)

	if resp.StatusCode >= 500 {
		return false, true
	}
	return resp.StatusCode < 400, true
}

func redirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return http.ErrUseLastResponse
	}
	return nil
}

// Fetch retrieves raw and extracts page metadata. Any transport failure,
// status >= 400, or non-HTML content type yields (nil, err); the
// orchestrator then stores the bookmark without enrichment rather than
// aborting the import.
func (f *Fetcher) Fetch(ctx context.Context, raw string) (*Metadata, error) {
	if f.limiter != nil {
		_ = f.limiter.Wait(ctx)
	}

	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("enrich: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	client := &http.Client{CheckRedirect: redirectPolicy}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enrich: fetch %s: %w", raw, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("enrich: fetch %s: status %d", raw, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("enrich: fetch %s: unsupported content type %s", raw, ct)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("enrich: parse html %s: %w", raw, err)
	}

	doc.Find(stripSelectors).Remove()

	md := &Metadata{
		Title:         strings.TrimSpace(doc.Find("title").First().Text()),
		Description:   metaContent(doc, "description"),
		OGTitle:       ogContent(doc, "og:title"),
		OGDescription: ogContent(doc, "og:description"),
		OGImage:       ogContent(doc, "og:image"),
		BodySnippet:   bodySnippet(doc),
	}
	return md, nil
}

func metaContent(doc *goquery.Document, name string) string {
	val, _ := doc.Find(fmt.Sprintf(`meta[name="%s"]`, name)).First().Attr("content")
	return strings.TrimSpace(val)
}

func ogContent(doc *goquery.Document, property string) string {
	val, _ := doc.Find(fmt.Sprintf(`meta[property="%s"]`, property)).First().Attr("content")
	return strings.TrimSpace(val)
}

func bodySnippet(doc *goquery.Document) string {
	text := doc.Find("body").Text()
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > maxBodyRunes {
		runes = runes[:maxBodyRunes]
	}
	return string(runes)
}

func schemeAndHost(raw string) (scheme, host string) {
	idx := strings.Index(raw, "://")
	if idx < 0 {
		return "", ""
	}
	scheme = raw[:idx]
	rest := raw[idx+3:]
	for i, c := range rest {
		if c == '/' || c == '?' || c == '#' {
			rest = rest[:i]
			break
		}
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	host = rest
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return scheme, host
}

func isInternalHost(host string) bool {
	if host == "" {
		return false
	}
	for _, p := range internalHostPatterns {
		if p.MatchString(host) {
			return true
		}
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
