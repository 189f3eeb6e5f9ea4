// Package taxonomy implements the deterministic, weighted rule classifier
// (spec §4.5) and the built-in category table it scores against.
package taxonomy

import (
	"regexp"
	"strings"
)

// Other is the sentinel label returned when no category clears the
// minimum score threshold. The caller is responsible for mapping it to a
// real category by slug ("other" / "uncategorized"), creating it if
// absent.
const Other = "Other"

const defaultMinThreshold = 4

// Entry is one weighted taxonomy rule: a canonical category name plus the
// signals that accumulate score against it (spec §4.5).
type Entry struct {
	Name                 string
	Keywords             []string
	URLPatterns          []*regexp.Regexp
	ContentIndicators    []string
	ExclusionPhrases     []string
	RequireWordBoundary  bool
	Weight               int
	Domains              []string // exact-host matches, +15 flat
}

// Bookmark is the scoring input: raw fields plus the semantic keywords
// already extracted by internal/textproc.
type Bookmark struct {
	URL              string
	Title            string
	Description      string
	SemanticKeywords []string
}

// Classifier scores bookmarks against an ordered taxonomy. Order matters:
// ties are broken by declaration order, first entry wins.
type Classifier struct {
	entries      []Entry
	minThreshold int
}

// New builds a Classifier over entries in declaration order, using the
// spec's default minimum threshold of 4.
func New(entries []Entry) *Classifier {
	return &Classifier{entries: entries, minThreshold: defaultMinThreshold}
}

// WithMinThreshold overrides the default minimum winning score.
func (c *Classifier) WithMinThreshold(n int) *Classifier {
	c.minThreshold = n
	return c
}

// Classify returns the canonical name of the highest-scoring category, or
// Other if no category clears the minimum threshold.
func (c *Classifier) Classify(bm Bookmark) string {
	host := hostOf(bm.URL)
	combined := strings.ToLower(bm.URL + " " + bm.Title + " " + bm.Description)

	bestName := Other
	bestScore := -1

	for _, e := range c.entries {
		score := c.score(e, bm, host, combined)
		if score > bestScore {
			bestScore = score
			bestName = e.Name
		}
	}

	if bestScore < c.minThreshold {
		return Other
	}
	return bestName
}

func (c *Classifier) score(e Entry, bm Bookmark, host, combined string) int {
	for _, phrase := range e.ExclusionPhrases {
		if phrase != "" && strings.Contains(combined, strings.ToLower(phrase)) {
			return 0
		}
	}

	total := 0

	for _, re := range e.URLPatterns {
		if re.MatchString(bm.URL) {
			total += 10 * e.Weight
			break
		}
	}

	for _, d := range e.Domains {
		if strings.EqualFold(d, host) {
			total += 15
			break
		}
	}

	for _, kw := range e.Keywords {
		if kw == "" {
			continue
		}
		if e.RequireWordBoundary {
			if wordBoundaryMatch(combined, strings.ToLower(kw)) {
				total += e.Weight
			}
		} else if strings.Contains(combined, strings.ToLower(kw)) {
			total += e.Weight
		}
	}

	for _, ind := range e.ContentIndicators {
		if ind != "" && strings.Contains(combined, strings.ToLower(ind)) {
			total += 2 * e.Weight
		}
	}

	for _, sk := range bm.SemanticKeywords {
		sk = strings.ToLower(sk)
		for _, kw := range e.Keywords {
			if sk == strings.ToLower(kw) {
				total += 3 * e.Weight
				break
			}
		}
		for _, ind := range e.ContentIndicators {
			if strings.Contains(strings.ToLower(ind), sk) {
				total += 2 * e.Weight
				break
			}
		}
	}

	return total
}

func wordBoundaryMatch(text, word string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return re.MatchString(text)
}

func hostOf(raw string) string {
	idx := strings.Index(raw, "://")
	if idx < 0 {
		return ""
	}
	rest := raw[idx+3:]
	for i, c := range rest {
		if c == '/' || c == '?' || c == '#' {
			return strings.ToLower(rest[:i])
		}
	}
	return strings.ToLower(rest)
}
