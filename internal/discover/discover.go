// Package discover implements custom-taxonomy discovery (C6) and batch
// category assignment (C7) against a persisted taxonomy.
package discover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrLLMUnavailable is returned when no LLM client is configured.
var ErrLLMUnavailable = errors.New("discover: llm unavailable")

// ErrLLMTruncated is returned by the LLM discovery path (not Assign, which
// tolerates truncation) when the LLM response cannot be parsed at all;
// Discover then falls back to clustering instead of returning it.
var ErrLLMTruncated = errors.New("discover: llm response could not be parsed")

const (
	discoverTemperature = 0.7
	discoverMaxTokens   = 16000
	assignTemperature   = 0.2
	assignMaxTokens     = 2000
	assignBatchSize     = 50
	minRoots            = 6
	maxRoots            = 10
	maxDepth            = 4
)

// SampledBookmark is one input row for discovery: title, host, and the
// source folder breadcrumb captured during import.
type SampledBookmark struct {
	Title        string
	Host         string
	SourceFolder string
}

// DiscoveredCategory is the transient tree node shared between C6/C7 and
// C8 (spec §3). TempID is unique within one discovery run; ParentTempID
// is empty for roots.
type DiscoveredCategory struct {
	TempID         string                 `json:"tempId"`
	Name           string                 `json:"name"`
	Slug           string                 `json:"slug,omitempty"`
	Description    string                 `json:"description,omitempty"`
	Keywords       []string               `json:"keywords,omitempty"`
	ParentTempID   string                 `json:"parentTempId,omitempty"`
	Depth          int                    `json:"depth"`
	EstimatedCount int                    `json:"estimatedCount"`
	Children       []*DiscoveredCategory  `json:"children,omitempty"`
}

// Discoverer builds a custom taxonomy from a bookmark sample, preferring
// an LLM call and falling back to deterministic clustering.
type Discoverer struct {
	client *openai.Client
	model  string
}

// NewDiscoverer reads OPENAI_API_KEY and CATEGORIZATION_MODEL from the
// environment, exactly as the teacher's categorization service does. A
// nil client (no key) is valid; Discover falls back to clustering.
func NewDiscoverer() *Discoverer {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return &Discoverer{}
	}
	model := os.Getenv("CATEGORIZATION_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Discoverer{client: openai.NewClient(key), model: model}
}

// Discover returns a forest of DiscoveredCategory built from sample and
// the aggregate host/folder statistics. It tries the LLM path first (if a
// client is configured) and falls back to clustering on any failure.
func (d *Discoverer) Discover(ctx context.Context, sample []SampledBookmark, topHosts map[string]int, folderCounts map[string]int) []*DiscoveredCategory {
	if d.client != nil {
		if forest, err := d.discoverViaLLM(ctx, sample, topHosts, folderCounts); err == nil {
			return postProcess(forest)
		}
	}
	return postProcess(discoverViaClustering(sample))
}

type llmCategory struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Keywords       []string `json:"keywords"`
	ParentName     *string  `json:"parentName"`
	EstimatedCount int      `json:"estimatedCount"`
}

type llmResponse struct {
	Categories []llmCategory `json:"categories"`
	Reasoning  string        `json:"reasoning"`
}

func (d *Discoverer) discoverViaLLM(ctx context.Context, sample []SampledBookmark, topHosts, folderCounts map[string]int) ([]*DiscoveredCategory, error) {
	prompt := buildDiscoveryPrompt(sample, topHosts, folderCounts)

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You organize bookmarks into a concise category taxonomy and respond with strict JSON only."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: discoverTemperature,
		MaxTokens:   discoverMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrLLMUnavailable)
	}

	raw := stripMarkdownFences(resp.Choices[0].Message.Content)

	var parsed llmResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMTruncated, err)
	}

	return buildForestFromLLM(parsed.Categories), nil
}

func buildDiscoveryPrompt(sample []SampledBookmark, topHosts, folderCounts map[string]int) string {
	var sb strings.Builder
	sb.WriteString("Organize the following bookmarks into a category taxonomy.\n")
	fmt.Fprintf(&sb, "Requirements: produce between %d and %d root categories, maximum depth %d levels.\n\n", minRoots, maxRoots, maxDepth)

	sb.WriteString("Bookmarks:\n")
	for i, b := range sample {
		fmt.Fprintf(&sb, "%d. %q (%s) [folder: %s]\n", i+1, b.Title, b.Host, b.SourceFolder)
	}

	sb.WriteString("\nTop domains:\n")
	for _, kv := range sortMapDesc(topHosts) {
		fmt.Fprintf(&sb, "- %s: %d\n", kv.key, kv.count)
	}

	sb.WriteString("\nFolder counts:\n")
	for _, kv := range sortMapDesc(folderCounts) {
		fmt.Fprintf(&sb, "- %s: %d\n", kv.key, kv.count)
	}

	sb.WriteString(`
Respond with strict JSON only, no markdown fences, of the exact shape:
{"categories":[{"name":"...","description":"...","keywords":["...","...","..."],"parentName":null,"estimatedCount":0}],"reasoning":"..."}
Each category needs 3 to 5 keywords. Use "parentName" to nest a category under another by name, or null for a root.
`)
	return sb.String()
}

type kv struct {
	key   string
	count int
}

func sortMapDesc(m map[string]int) []kv {
	out := make([]kv, 0, len(m))
	for k, v := range m {
		out = append(out, kv{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

var markdownFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if m := markdownFencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

func buildForestFromLLM(cats []llmCategory) []*DiscoveredCategory {
	byName := make(map[string]*DiscoveredCategory, len(cats))
	var roots []*DiscoveredCategory

	for i, c := range cats {
		node := &DiscoveredCategory{
			TempID:         fmt.Sprintf("t%d", i),
			Name:           c.Name,
			Description:    c.Description,
			Keywords:       c.Keywords,
			EstimatedCount: c.EstimatedCount,
		}
		byName[c.Name] = node
	}

	for _, c := range cats {
		node := byName[c.Name]
		if c.ParentName == nil || *c.ParentName == "" {
			roots = append(roots, node)
			continue
		}
		parent, ok := byName[*c.ParentName]
		if !ok {
			roots = append(roots, node)
			continue
		}
		node.ParentTempID = parent.TempID
		parent.Children = append(parent.Children, node)
	}

	return roots
}

// postProcess assigns depths, flattens over-deep subtrees (spec §4.6's
// "promote grandchildren, drop the intermediate level"), and assigns
// slugs. Duplicate slugs are not rejected: assignSlugs gives later
// duplicates a numeric suffix.
func postProcess(roots []*DiscoveredCategory) []*DiscoveredCategory {
	assignDepths(roots, 0)
	roots = flattenOverDeep(roots, 0)
	assignSlugs(roots)
	return roots
}

func assignDepths(nodes []*DiscoveredCategory, depth int) {
	for _, n := range nodes {
		n.Depth = depth
		assignDepths(n.Children, depth+1)
	}
}

// flattenOverDeep walks the forest; any node at depth >= maxDepth-1 has
// its children's children promoted to be its direct children, and the
// intermediate level's own child list is dropped, per spec §4.6.
func flattenOverDeep(nodes []*DiscoveredCategory, depth int) []*DiscoveredCategory {
	for _, n := range nodes {
		if depth >= maxDepth-1 {
			var promoted []*DiscoveredCategory
			for _, child := range n.Children {
				promoted = append(promoted, child.Children...)
			}
			n.Children = promoted
			assignDepths(n.Children, depth+1)
			continue
		}
		n.Children = flattenOverDeep(n.Children, depth+1)
	}
	return nodes
}

// assignSlugs slugifies every node's name and disambiguates collisions
// with a numeric suffix. LLM-discovered names are not under our control,
// so unlike the embedded built-in taxonomy (where a duplicate slug is a
// packaging defect worth panicking over), a collision here is ordinary
// input to tolerate, not a bug to crash on.
func assignSlugs(roots []*DiscoveredCategory) {
	seen := make(map[string]bool)
	var walk func(nodes []*DiscoveredCategory)
	walk = func(nodes []*DiscoveredCategory) {
		for _, n := range nodes {
			base := slugify(n.Name)
			slug := base
			for suffix := 2; seen[slug]; suffix++ {
				slug = fmt.Sprintf("%s-%d", base, suffix)
			}
			seen[slug] = true
			n.Slug = slug
			walk(n.Children)
		}
	}
	walk(roots)
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugNonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// discoverViaClustering is the deterministic fallback used when no LLM
// client is configured or the LLM call fails (spec §4.6).
func discoverViaClustering(sample []SampledBookmark) []*DiscoveredCategory {
	remaining := make(map[int]SampledBookmark, len(sample))
	for i, b := range sample {
		remaining[i] = b
	}

	var roots []*DiscoveredCategory

	byFolder := make(map[string][]int)
	for i, b := range remaining {
		if b.SourceFolder == "" {
			continue
		}
		byFolder[b.SourceFolder] = append(byFolder[b.SourceFolder], i)
	}
	for folder, idxs := range byFolder {
		if len(idxs) < 3 {
			continue
		}
		roots = append(roots, clusterNode(folder, idxs, sample))
		for _, i := range idxs {
			delete(remaining, i)
		}
	}

	byHost := make(map[string][]int)
	for i, b := range remaining {
		byHost[b.Host] = append(byHost[b.Host], i)
	}
	for host, idxs := range byHost {
		if len(idxs) < 5 {
			continue
		}
		roots = append(roots, clusterNode(host, idxs, sample))
		for _, i := range idxs {
			delete(remaining, i)
		}
	}

	if len(remaining) > 0 {
		idxs := make([]int, 0, len(remaining))
		for i := range remaining {
			idxs = append(idxs, i)
		}
		sort.Ints(idxs)
		roots = append(roots, &DiscoveredCategory{
			Name:           "Uncategorized",
			Description:    "Bookmarks that did not cluster with any other group.",
			EstimatedCount: len(idxs),
		})
	}

	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	for i, r := range roots {
		r.TempID = fmt.Sprintf("t%d", i)
	}
	return roots
}

func clusterNode(label string, idxs []int, sample []SampledBookmark) *DiscoveredCategory {
	freq := make(map[string]int)
	for _, i := range idxs {
		for _, tok := range strings.Fields(strings.ToLower(sample[i].Title)) {
			freq[tok]++
		}
	}
	kv := sortMapDesc(freq)
	top := make([]string, 0, 15)
	for i := 0; i < len(kv) && i < 15; i++ {
		top = append(top, kv[i].key)
	}

	return &DiscoveredCategory{
		Name:           label,
		Description:    fmt.Sprintf("Automatically clustered group of %d bookmarks related to %s.", len(idxs), label),
		Keywords:       top,
		EstimatedCount: len(idxs),
	}
}

// --- C7: batch assignment ---

// IndexedBookmark is one row of the bookmark side of the assignment
// prompt: index, title, host.
type IndexedBookmark struct {
	Index int
	Title string
	Host  string
}

// IndexedCategory is one row of the category side: index, name.
type IndexedCategory struct {
	Index int
	Name  string
}

// AssignResult maps bookmark index to assigned category name.
// Unassigned holds indices the LLM did not place, for the caller to run
// through the rule classifier's keyword fallback.
type AssignResult struct {
	Assigned   map[int]string
	Unassigned []int
}

// Assigner batch-assigns bookmarks to a known taxonomy using the LLM.
type Assigner struct {
	client *openai.Client
	model  string
}

// NewAssigner mirrors NewDiscoverer's environment-variable configuration.
func NewAssigner() *Assigner {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return &Assigner{}
	}
	model := os.Getenv("CATEGORIZATION_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Assigner{client: openai.NewClient(key), model: model}
}

// Assign processes bookmarks in batches of 50, invoking progress after
// each batch with (number of bookmarks handled so far, whether assigned
// or not, total). Returns ErrLLMUnavailable if no client is configured.
func (a *Assigner) Assign(ctx context.Context, bookmarks []IndexedBookmark, categories []IndexedCategory, progress func(assigned, total int)) (*AssignResult, error) {
	if a.client == nil {
		return nil, ErrLLMUnavailable
	}

	result := &AssignResult{Assigned: make(map[int]string)}
	seen := make(map[int]bool)

	for start := 0; start < len(bookmarks); start += assignBatchSize {
		end := start + assignBatchSize
		if end > len(bookmarks) {
			end = len(bookmarks)
		}
		batch := bookmarks[start:end]

		pairs, err := a.assignBatch(ctx, batch, categories)
		if err != nil {
			for _, b := range batch {
				if !seen[b.Index] {
					result.Unassigned = append(result.Unassigned, b.Index)
					seen[b.Index] = true
				}
			}
			if progress != nil {
				progress(end, len(bookmarks))
			}
			continue
		}

		nameByIndex := make(map[int]string, len(categories))
		for _, c := range categories {
			nameByIndex[c.Index] = c.Name
		}

		assignedThisBatch := make(map[int]bool)
		for _, p := range pairs {
			j, i := p[0], p[1]
			name, ok := nameByIndex[i]
			if !ok {
				continue
			}
			result.Assigned[j] = name
			assignedThisBatch[j] = true
		}
		for _, b := range batch {
			if !assignedThisBatch[b.Index] && !seen[b.Index] {
				result.Unassigned = append(result.Unassigned, b.Index)
				seen[b.Index] = true
			}
		}

		if progress != nil {
			progress(end, len(bookmarks))
		}
	}

	return result, nil
}

func (a *Assigner) assignBatch(ctx context.Context, batch []IndexedBookmark, categories []IndexedCategory) ([][2]int, error) {
	prompt := buildAssignPrompt(batch, categories)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You map bookmarks to category indices and respond with a compact JSON array only."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: assignTemperature,
		MaxTokens:   assignMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrLLMUnavailable)
	}

	raw := stripMarkdownFences(resp.Choices[0].Message.Content)
	return parsePairsTolerant(raw), nil
}

func buildAssignPrompt(batch []IndexedBookmark, categories []IndexedCategory) string {
	var sb strings.Builder
	sb.WriteString("Categories (index, name):\n")
	for _, c := range categories {
		fmt.Fprintf(&sb, "[%d, %q]\n", c.Index, c.Name)
	}
	sb.WriteString("\nBookmarks (index, title, host):\n")
	for _, b := range batch {
		fmt.Fprintf(&sb, "[%d, %q, %q]\n", b.Index, b.Title, b.Host)
	}
	sb.WriteString(`
Respond with a compact JSON array of [bookmarkIndex, categoryIndex] pairs only, e.g. [[0,2],[1,0]]. No prose, no markdown fences.
`)
	return sb.String()
}

var pairPattern = regexp.MustCompile(`\[\s*(\d+)\s*,\s*(\d+)\s*\]`)

// parsePairsTolerant extracts every complete [j, i] pair from raw,
// regardless of whether the enclosing array was closed. This handles the
// truncated-response case from spec §4.7 without needing to locate the
// last "]]" explicitly: a regex scan over complete inner pairs achieves
// the same "trim to last complete pair" effect more robustly against
// whitespace variation.
func parsePairsTolerant(raw string) [][2]int {
	matches := pairPattern.FindAllStringSubmatch(raw, -1)
	pairs := make([][2]int, 0, len(matches))
	for _, m := range matches {
		var j, i int
		if _, err := fmt.Sscanf(m[1], "%d", &j); err != nil {
			continue
		}
		if _, err := fmt.Sscanf(m[2], "%d", &i); err != nil {
			continue
		}
		pairs = append(pairs, [2]int{j, i})
	}
	return pairs
}
