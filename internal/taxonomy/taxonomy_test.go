package taxonomy

import "testing"

func testEntries() []Entry {
	return []Entry{
		{
			Name:                "Development",
			Weight:              3,
			RequireWordBoundary: true,
			Keywords:            []string{"github", "repository", "api"},
			Domains:             []string{"github.com"},
			ContentIndicators:   []string{"pull request"},
		},
		{
			Name:                "Food",
			Weight:              2,
			RequireWordBoundary: true,
			Keywords:            []string{"recipe", "cooking"},
			ExclusionPhrases:    []string{"pharmaceutical"},
		},
		{
			Name:                "Home & Garden",
			Weight:              2,
			RequireWordBoundary: true,
			Keywords:            []string{"garden", "furniture"},
			ExclusionPhrases:    []string{"pharmaceutical"},
		},
	}
}

func TestClassifyDomainHit(t *testing.T) {
	c := New(testEntries())
	got := c.Classify(Bookmark{URL: "https://github.com/golang/go", Title: "go"})
	if got != "Development" {
		t.Errorf("Classify() = %q, want Development", got)
	}
}

func TestClassifyKeywordMatch(t *testing.T) {
	c := New(testEntries())
	got := c.Classify(Bookmark{
		URL:         "https://example.com/page",
		Title:       "My favorite recipe",
		Description: "A great recipe for cooking pasta at home.",
	})
	if got != "Food" {
		t.Errorf("Classify() = %q, want Food", got)
	}
}

func TestClassifyExclusionForcesZero(t *testing.T) {
	c := New(testEntries())
	got := c.Classify(Bookmark{
		URL:         "https://example.com/garden-meds",
		Title:       "Garden furniture and pharmaceutical supplies",
		Description: "",
	})
	if got != Other {
		t.Errorf("Classify() = %q, want Other (exclusion should zero out Home & Garden)", got)
	}
}

func TestClassifyBelowThresholdReturnsOther(t *testing.T) {
	c := New(testEntries())
	got := c.Classify(Bookmark{URL: "https://example.com/unrelated", Title: "Nothing relevant here"})
	if got != Other {
		t.Errorf("Classify() = %q, want Other", got)
	}
}

func TestClassifyTieBreaksByDeclarationOrder(t *testing.T) {
	entries := []Entry{
		{Name: "First", Weight: 4, Keywords: []string{"widget"}},
		{Name: "Second", Weight: 4, Keywords: []string{"widget"}},
	}
	c := New(entries)
	got := c.Classify(Bookmark{URL: "https://example.com/widget", Title: "widget"})
	if got != "First" {
		t.Errorf("Classify() = %q, want First (declaration-order tie-break)", got)
	}
}

func TestBuiltinTaxonomyLoadsAndClassifies(t *testing.T) {
	entries := BuiltinTaxonomy()
	if len(entries) == 0 {
		t.Fatal("BuiltinTaxonomy() returned no entries")
	}
	c := New(entries)
	got := c.Classify(Bookmark{URL: "https://github.com/golang/go", Title: "The Go Programming Language"})
	if got != "Development" {
		t.Errorf("Classify() = %q, want Development", got)
	}
}

func TestSemanticKeywordOverlapAddsScore(t *testing.T) {
	c := New(testEntries())
	got := c.Classify(Bookmark{
		URL:              "https://example.com/x",
		Title:            "x",
		SemanticKeywords: []string{"api", "repository"},
	})
	if got != "Development" {
		t.Errorf("Classify() = %q, want Development from semantic keyword overlap", got)
	}
}
