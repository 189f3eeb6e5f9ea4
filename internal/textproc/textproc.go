// Package textproc turns raw page text and URLs into the normalized
// tokens the classifier and taxonomy discoverer score against.
package textproc

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	defaultMinWordLength = 2
	defaultTopN          = 15
	compoundScore        = 100
	bigramScore          = 50
)

var (
	htmlEntityPattern = regexp.MustCompile(`&[a-zA-Z#0-9]+;`)
	urlPattern        = regexp.MustCompile(`\bhttps?://\S+`)
	emailPattern      = regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.-]+\b`)
	camelBoundary     = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	wordSplitter      = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	numericToken      = regexp.MustCompile(`^[0-9]+$`)
)

// Clean normalizes raw text for keyword extraction: Unicode NFC
// normalization, HTML entity and URL/email stripping, CamelCase and
// snake_case/kebab-case splitting, lowercasing, and whitespace collapse
// (spec §4.3).
func Clean(text string) string {
	text = norm.NFC.String(text)
	text = htmlEntityPattern.ReplaceAllString(text, " ")
	text = urlPattern.ReplaceAllString(text, " ")
	text = emailPattern.ReplaceAllString(text, " ")
	text = camelBoundary.ReplaceAllString(text, "$1 $2")
	text = strings.NewReplacer("_", " ", "-", " ").Replace(text)
	text = strings.ToLower(text)
	return strings.Join(strings.Fields(text), " ")
}

// Config tunes extraction behavior for ExtractSemanticKeywords.
type Config struct {
	MinWordLength int
	TopN          int
	CompoundTerms []string // curated two-word phrases, lowercase, space-joined
	DomainTerms   map[string]bool
}

// DefaultConfig returns the spec's default thresholds with no curated
// compound/domain tables. Callers supplying their own table should copy
// this and override CompoundTerms/DomainTerms.
func DefaultConfig() Config {
	return Config{
		MinWordLength: defaultMinWordLength,
		TopN:          defaultTopN,
	}
}

// KeywordScore is one ranked keyword and its accumulated score.
type KeywordScore struct {
	Term  string
	Score int
}

// ExtractSemanticKeywords tokenizes cleaned text, drops stop words, short
// tokens, and purely numeric tokens, scores compound terms and bigrams
// from the curated list, doubles the score of domain-table words, and
// returns the top N terms by score (spec §4.3).
func ExtractSemanticKeywords(text string, cfg Config) []KeywordScore {
	if cfg.MinWordLength <= 0 {
		cfg.MinWordLength = defaultMinWordLength
	}
	if cfg.TopN <= 0 {
		cfg.TopN = defaultTopN
	}

	cleaned := Clean(text)
	rawTokens := wordSplitter.Split(cleaned, -1)

	var tokens []string
	for _, tok := range rawTokens {
		if tok == "" {
			continue
		}
		if len(tok) < cfg.MinWordLength {
			continue
		}
		if numericToken.MatchString(tok) {
			continue
		}
		if StopWords[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}

	compoundSet := make(map[string]bool, len(cfg.CompoundTerms))
	for _, c := range cfg.CompoundTerms {
		compoundSet[c] = true
	}

	scores := make(map[string]int)
	consumed := make([]bool, len(tokens))

	for i := 0; i < len(tokens)-1; i++ {
		if consumed[i] || consumed[i+1] {
			continue
		}
		pair := tokens[i] + " " + tokens[i+1]
		if compoundSet[pair] {
			scores[pair] += compoundScore
			consumed[i] = true
			consumed[i+1] = true
		}
	}

	for i := 0; i < len(tokens)-1; i++ {
		if consumed[i] || consumed[i+1] {
			continue
		}
		pair := tokens[i] + " " + tokens[i+1]
		if compoundSet[pair] {
			scores[pair] += bigramScore
		}
	}

	for i, tok := range tokens {
		if consumed[i] {
			continue
		}
		weight := 1
		if cfg.DomainTerms[tok] {
			weight = 2
		}
		scores[tok] += weight
	}

	ranked := make([]KeywordScore, 0, len(scores))
	for term, score := range scores {
		ranked = append(ranked, KeywordScore{Term: term, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Term < ranked[j].Term
	})

	if len(ranked) > cfg.TopN {
		ranked = ranked[:cfg.TopN]
	}
	return ranked
}

// ExtractURLTokens splits a URL's host labels and path/query segments into
// lowercase word tokens, discarding pure separators and file extensions.
func ExtractURLTokens(raw string) []string {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}

	var tokens []string
	for _, label := range strings.Split(u.Hostname(), ".") {
		tokens = append(tokens, splitWords(label)...)
	}
	for _, seg := range strings.Split(u.Path, "/") {
		seg = strings.TrimSuffix(seg, pathExt(seg))
		tokens = append(tokens, splitWords(seg)...)
	}
	for _, kv := range strings.Split(u.RawQuery, "&") {
		tokens = append(tokens, splitWords(kv)...)
	}

	out := tokens[:0]
	for _, t := range tokens {
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

func pathExt(seg string) string {
	if i := strings.LastIndex(seg, "."); i > 0 {
		return seg[i:]
	}
	return ""
}

func splitWords(s string) []string {
	s = camelBoundary.ReplaceAllString(s, "$1 $2")
	s = strings.NewReplacer("_", " ", "-", " ", "+", " ", "%20", " ").Replace(s)
	s = strings.ToLower(s)
	fields := wordSplitter.Split(s, -1)
	var out []string
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// domainHint pairs a regex matched against host+path against a tag.
type domainHint struct {
	pattern *regexp.Regexp
	tag     string
}

var domainHintTable = []domainHint{
	{regexp.MustCompile(`github\.com|gitlab\.com|bitbucket\.org`), "development"},
	{regexp.MustCompile(`stackoverflow\.com|stackexchange\.com`), "development"},
	{regexp.MustCompile(`pkg\.go\.dev|golang\.org|docs\.python\.org|developer\.mozilla\.org`), "documentation"},
	{regexp.MustCompile(`recipe[s]?[./]|allrecipes\.com|foodnetwork\.com`), "food"},
	{regexp.MustCompile(`youtube\.com|vimeo\.com|netflix\.com`), "video"},
	{regexp.MustCompile(`news\.|reuters\.com|bbc\.co|nytimes\.com`), "news"},
	{regexp.MustCompile(`amazon\.|ebay\.|etsy\.com`), "shopping"},
	{regexp.MustCompile(`reddit\.com|twitter\.com|x\.com|facebook\.com|instagram\.com`), "social"},
	{regexp.MustCompile(`arxiv\.org|scholar\.google|ncbi\.nlm\.nih\.gov`), "research"},
	{regexp.MustCompile(`coursera\.org|udemy\.com|khanacademy\.org|edx\.org`), "education"},
}

// DomainHints matches the host and path of raw against a fixed table of
// regex-to-tag rules and returns every tag that matches (spec §4.3).
func DomainHints(raw string) []string {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	haystack := strings.ToLower(u.Hostname() + u.Path)

	var tags []string
	for _, h := range domainHintTable {
		if h.pattern.MatchString(haystack) {
			tags = append(tags, h.tag)
		}
	}
	return tags
}
