package discover

import "testing"

func TestDiscoverViaClusteringFolderAndHostAndResidue(t *testing.T) {
	sample := []SampledBookmark{
		{Title: "repo one", Host: "github.com", SourceFolder: "Dev"},
		{Title: "repo two", Host: "github.com", SourceFolder: "Dev"},
		{Title: "repo three", Host: "github.com", SourceFolder: "Dev"},
		{Title: "q one", Host: "stackoverflow.com"},
		{Title: "q two", Host: "stackoverflow.com"},
		{Title: "q three", Host: "stackoverflow.com"},
		{Title: "q four", Host: "stackoverflow.com"},
		{Title: "q five", Host: "stackoverflow.com"},
		{Title: "lone bookmark", Host: "example.net"},
	}

	forest := discoverViaClustering(sample)

	var names []string
	for _, n := range forest {
		names = append(names, n.Name)
	}

	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["Dev"] {
		t.Errorf("expected a Dev folder cluster, got %v", names)
	}
	if !found["stackoverflow.com"] {
		t.Errorf("expected a stackoverflow.com host cluster, got %v", names)
	}
	if !found["Uncategorized"] {
		t.Errorf("expected an Uncategorized residue bucket, got %v", names)
	}
}

func TestPostProcessFlattensOverDeepSubtrees(t *testing.T) {
	leaf := &DiscoveredCategory{Name: "Leaf"}
	greatgrandchild := &DiscoveredCategory{Name: "GreatGrandchild", Children: []*DiscoveredCategory{leaf}}
	grandchild := &DiscoveredCategory{Name: "Grandchild", Children: []*DiscoveredCategory{greatgrandchild}}
	child := &DiscoveredCategory{Name: "Child", Children: []*DiscoveredCategory{grandchild}}
	root := &DiscoveredCategory{Name: "Root", Children: []*DiscoveredCategory{child}}

	forest := postProcess([]*DiscoveredCategory{root})

	maxDepthFound := 0
	var walk func(n *DiscoveredCategory)
	walk = func(n *DiscoveredCategory) {
		if n.Depth > maxDepthFound {
			maxDepthFound = n.Depth
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range forest {
		walk(r)
	}

	if maxDepthFound > maxDepth-1 {
		t.Errorf("max depth found = %d, want <= %d", maxDepthFound, maxDepth-1)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Machine Learning":  "machine-learning",
		"C++ & Systems":     "c-systems",
		"  spaced  ":        "spaced",
		"Already-Slugged":   "already-slugged",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripMarkdownFences(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	got := stripMarkdownFences(in)
	if got != `{"a":1}` {
		t.Errorf("stripMarkdownFences() = %q", got)
	}
}

func TestParsePairsTolerantHandlesTruncation(t *testing.T) {
	in := `[[0,1],[1,0],[2,2`
	pairs := parsePairsTolerant(in)
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2 complete pairs from truncated input: %v", len(pairs), pairs)
	}
	if pairs[0] != [2]int{0, 1} || pairs[1] != [2]int{1, 0} {
		t.Errorf("pairs = %v, want [[0 1] [1 0]]", pairs)
	}
}

func TestAssignReturnsErrWhenLLMUnavailable(t *testing.T) {
	a := &Assigner{}
	_, err := a.Assign(nil, nil, nil, nil)
	if err != ErrLLMUnavailable {
		t.Errorf("err = %v, want ErrLLMUnavailable", err)
	}
}
