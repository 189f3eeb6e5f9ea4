package textproc

import (
	"strings"
	"testing"
)

func validateContains(t *testing.T, got []string, want string) {
	t.Helper()
	for _, g := range got {
		if g == want {
			return
		}
	}
	t.Errorf("expected %v to contain %q", got, want)
}

func TestCleanNormalizesText(t *testing.T) {
	in := "Check out MyAwesomeBlog_post-title at https://example.com/x and mail me@example.com &amp; enjoy"
	got := Clean(in)

	if strings.Contains(got, "https://") {
		t.Errorf("Clean() did not strip URL: %q", got)
	}
	if strings.Contains(got, "@") {
		t.Errorf("Clean() did not strip email: %q", got)
	}
	if strings.Contains(got, "&amp;") {
		t.Errorf("Clean() did not strip HTML entity: %q", got)
	}
	if got != strings.ToLower(got) {
		t.Errorf("Clean() did not lowercase: %q", got)
	}
	if strings.Contains(got, "myawesomeblog") {
		t.Errorf("Clean() did not split CamelCase: %q", got)
	}
	if strings.Contains(got, "_") || strings.Contains(got, "-") {
		t.Errorf("Clean() left separators: %q", got)
	}
}

func TestExtractSemanticKeywordsDropsStopWordsAndShortTokens(t *testing.T) {
	cfg := DefaultConfig()
	got := ExtractSemanticKeywords("the quick brown fox jumps over the lazy dog and it was fun", cfg)

	var terms []string
	for _, k := range got {
		terms = append(terms, k.Term)
	}
	for _, stop := range []string{"the", "and", "it", "was"} {
		for _, term := range terms {
			if term == stop {
				t.Errorf("expected stop word %q to be dropped, got terms %v", stop, terms)
			}
		}
	}
	validateContains(t, terms, "quick")
	validateContains(t, terms, "brown")
}

func TestExtractSemanticKeywordsScoresCompoundTermsHighest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CompoundTerms = []string{"machine learning"}
	got := ExtractSemanticKeywords("machine learning machine learning neural networks", cfg)

	if len(got) == 0 {
		t.Fatal("expected at least one keyword")
	}
	if got[0].Term != "machine learning" {
		t.Errorf("top term = %q, want %q", got[0].Term, "machine learning")
	}
}

func TestExtractSemanticKeywordsDoublesDomainTermScore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DomainTerms = map[string]bool{"kubernetes": true}
	got := ExtractSemanticKeywords("kubernetes docker containers orchestration", cfg)

	scores := make(map[string]int)
	for _, k := range got {
		scores[k.Term] = k.Score
	}
	if scores["kubernetes"] != 2 {
		t.Errorf("kubernetes score = %d, want 2", scores["kubernetes"])
	}
	if scores["docker"] != 1 {
		t.Errorf("docker score = %d, want 1", scores["docker"])
	}
}

func TestExtractURLTokens(t *testing.T) {
	got := ExtractURLTokens("https://www.example-site.com/blog/my_first-Post.html?ref=twitter")
	validateContains(t, got, "example")
	validateContains(t, got, "site")
	validateContains(t, got, "blog")
	validateContains(t, got, "first")
	validateContains(t, got, "post")
}

func TestDomainHints(t *testing.T) {
	got := DomainHints("https://github.com/golang/go")
	validateContains(t, got, "development")

	got = DomainHints("https://www.allrecipes.com/recipe/123/pasta")
	validateContains(t, got, "food")

	got = DomainHints("https://an-unrelated-example.test/page")
	if len(got) != 0 {
		t.Errorf("expected no hints for unrelated domain, got %v", got)
	}
}
