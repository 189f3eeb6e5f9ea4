// Package importer drives the bookmark import pipeline: parsing,
// deduplication, path A/default-taxonomy or path B/custom-taxonomy
// processing, and session bookkeeping (spec §4.9).
package importer

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"fury/internal/bookmarkfile"
	"fury/internal/discover"
	"fury/internal/enrich"
	"fury/internal/normalize"
	"fury/internal/storage"
	"fury/internal/taxonomy"
	"fury/internal/textproc"
)

const (
	workerPoolSize   = 5
	minBatchSleep    = 500 * time.Millisecond
	maxBatchSleep    = 1000 * time.Millisecond
	fastPathInterval = 10
)

// Orchestrator drives one import at a time; it is safe to reuse across
// sequential runs but not to call Run concurrently from two goroutines.
type Orchestrator struct {
	store      *storage.Store
	fetcher    *enrich.Fetcher
	classifier *taxonomy.Classifier
	discoverer *discover.Discoverer
	assigner   *discover.Assigner

	mu        sync.Mutex
	cancelled bool
}

// New wires the components C9 coordinates.
func New(store *storage.Store, fetcher *enrich.Fetcher, classifier *taxonomy.Classifier, discoverer *discover.Discoverer, assigner *discover.Assigner) *Orchestrator {
	return &Orchestrator{
		store:      store,
		fetcher:    fetcher,
		classifier: classifier,
		discoverer: discoverer,
		assigner:   assigner,
	}
}

// Request is one import run's input.
type Request struct {
	FileName string
	Content  io.Reader
	// CustomTaxonomy selects path B when non-nil (caller-supplied tree);
	// when nil and UseCustomTaxonomy is true, C6 discovers one first.
	CustomTaxonomy    []*discover.DiscoveredCategory
	UseCustomTaxonomy bool
}

// Cancel requests cooperative cancellation of the in-flight Run. It has
// no effect if no run is active.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	o.cancelled = true
	o.mu.Unlock()
}

func (o *Orchestrator) isCancelled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

type uniqueBookmark struct {
	bookmarkfile.Bookmark
	normalizedURL string
}

// Run executes one full import: parse, dedupe, pick path A or B, stream
// events through emit, and write the ImportSession exactly once at the
// end (spec §4.9). emit must not block for long; a disconnected consumer
// should pass a no-op emit.
func (o *Orchestrator) Run(ctx context.Context, req Request, emit func(Event)) error {
	o.mu.Lock()
	o.cancelled = false
	o.mu.Unlock()

	emit(StatusEvent{Phase: "parsing", Message: "reading bookmark file"})

	parsed, err := bookmarkfile.Parse(req.Content)
	if err != nil {
		emit(ErrorEvent{Message: err.Error()})
		return fmt.Errorf("importer: parse: %w", err)
	}

	uniques, duplicates := dedupe(parsed)

	emit(InitEvent{
		TotalInFile:      len(parsed),
		UniqueBookmarks:  len(uniques),
		DuplicatesInFile: duplicates,
	})

	var (
		newBookmarks, updatedBookmarks, successful, failed, skipped int
		customCategoriesCreated, aiAssignments                      int
	)

	if req.UseCustomTaxonomy || req.CustomTaxonomy != nil {
		emit(StatusEvent{Phase: "pathB", Message: "running custom taxonomy pipeline"})
		customCategoriesCreated, aiAssignments, successful, failed, skipped = o.runPathB(ctx, uniques, req.CustomTaxonomy, emit)
		newBookmarks = successful
	} else {
		emit(StatusEvent{Phase: "pathA", Message: "running default taxonomy pipeline"})
		newBookmarks, updatedBookmarks, successful, failed, skipped = o.runPathA(ctx, uniques, emit)
	}

	cancelled := o.isCancelled()

	// In-file duplicates never reach path A/B, so they never touch
	// skipped above; fold them in here to keep successful+failed+skipped
	// == len(parsed) (spec §3/§8).
	skipped += duplicates

	emit(StatusEvent{Phase: "sessioning", Message: "writing import session"})
	sess, sessErr := o.store.CreateImportSession(req.FileName, len(parsed), successful, failed, skipped)
	if sessErr != nil {
		emit(ErrorEvent{Message: sessErr.Error()})
		return fmt.Errorf("importer: create session: %w", sessErr)
	}

	if cancelled {
		emit(ErrorEvent{Message: "cancelled"})
		return nil
	}

	emit(CompleteEvent{
		ImportSessionID:         sess.ID,
		TotalInFile:             len(parsed),
		UniqueBookmarks:         len(uniques),
		DuplicatesInFile:        duplicates,
		NewBookmarks:            newBookmarks,
		UpdatedBookmarks:        updatedBookmarks,
		SuccessfulBookmarks:     successful,
		FailedBookmarks:         failed,
		SkippedBookmarks:        skipped,
		CustomCategoriesCreated: customCategoriesCreated,
		AIAssignments:           aiAssignments,
	})
	return nil
}

// dedupe folds in-file duplicate normalized URLs, keeping the first
// occurrence (spec §2, "C2 dedupe within file").
func dedupe(parsed []bookmarkfile.Bookmark) ([]uniqueBookmark, int) {
	seen := make(map[string]bool, len(parsed))
	var out []uniqueBookmark
	duplicates := 0

	for _, bm := range parsed {
		norm := normalize.URL(bm.URL)
		if seen[norm] {
			duplicates++
			continue
		}
		seen[norm] = true
		out = append(out, uniqueBookmark{Bookmark: bm, normalizedURL: norm})
	}
	return out, duplicates
}

// runPathA processes each unique bookmark through validate → fetch →
// analyze_locally → ensure_category → upsert, with a worker pool of 5 and
// a polite sleep between batches (spec §4.9).
func (o *Orchestrator) runPathA(ctx context.Context, uniques []uniqueBookmark, emit func(Event)) (newCount, updatedCount, successful, failed, skipped int) {
	var mu sync.Mutex
	processed := 0
	total := len(uniques)

	for start := 0; start < len(uniques); start += workerPoolSize {
		if o.isCancelled() || ctx.Err() != nil {
			o.mu.Lock()
			o.cancelled = true
			o.mu.Unlock()
			return
		}

		end := start + workerPoolSize
		if end > len(uniques) {
			end = len(uniques)
		}
		batch := uniques[start:end]

		var wg sync.WaitGroup
		for _, bm := range batch {
			wg.Add(1)
			go func(bm uniqueBookmark) {
				defer wg.Done()
				o.processOnePathA(ctx, bm, emit, &mu, &processed, total, &newCount, &updatedCount, &successful, &failed, &skipped)
			}(bm)
		}
		wg.Wait()

		if end < len(uniques) {
			time.Sleep(minBatchSleep + time.Duration(rand.Int63n(int64(maxBatchSleep-minBatchSleep)+1)))
		}
	}
	return
}

func (o *Orchestrator) processOnePathA(ctx context.Context, bm uniqueBookmark, emit func(Event), mu *sync.Mutex, processed *int, total int, newCount, updatedCount, successful, failed, skipped *int) {
	if !o.fetcher.Validate(ctx, bm.URL) {
		mu.Lock()
		*skipped++
		*processed++
		mu.Unlock()
		emit(SkippedEvent{URL: bm.URL, Reason: "Invalid URL"})
		o.emitProgress(emit, mu, processed, total, bm.URL, newCount, updatedCount, skipped, failed, "")
		return
	}

	md, err := o.fetcher.Fetch(ctx, bm.URL)

	var keywords []string
	var semantic []textproc.KeywordScore
	text := bm.Title + " " + bm.Description
	if md != nil {
		text += " " + md.Title + " " + md.Description + " " + md.OGDescription + " " + md.BodySnippet
	}
	semantic = textproc.ExtractSemanticKeywords(text, textproc.DefaultConfig())
	for _, k := range semantic {
		keywords = append(keywords, k.Term)
	}

	label := o.classifier.Classify(taxonomy.Bookmark{
		URL:              bm.URL,
		Title:            bm.Title,
		Description:      bm.Description,
		SemanticKeywords: keywords,
	})
	if label == taxonomy.Other {
		label = "Uncategorized"
	}

	cat, catErr := o.store.EnsureCategory(label)

	fields := storage.BookmarkFields{
		RawURL:       bm.URL,
		Title:        bm.Title,
		Description:  bm.Description,
		SourceFolder: bm.SourceFolder,
		Keywords:     keywords,
	}
	if catErr == nil {
		fields.CategorySlug = &cat.Slug
	}
	if md != nil {
		fields.MetaTitle = md.Title
		fields.MetaDescription = md.Description
		fields.OGTitle = md.OGTitle
		fields.OGDescription = md.OGDescription
		fields.OGImage = md.OGImage
		fields.Summary = md.BodySnippet
	}

	_, created, upsertErr := o.store.UpsertBookmark(bm.normalizedURL, fields)

	mu.Lock()
	*processed++
	if upsertErr != nil {
		*failed++
	} else {
		*successful++
		if created {
			*newCount++
		} else {
			*updatedCount++
		}
	}
	mu.Unlock()

	o.emitProgress(emit, mu, processed, total, bm.URL, newCount, updatedCount, skipped, failed, "")
}

func (o *Orchestrator) emitProgress(emit func(Event), mu *sync.Mutex, processed *int, total int, current string, newCount, updatedCount, skipped, failed *int, phase string) {
	mu.Lock()
	p := *processed
	n := *newCount
	u := *updatedCount
	sk := *skipped
	fl := *failed
	mu.Unlock()

	percent := 0.0
	if total > 0 {
		percent = float64(p) / float64(total) * 100
	}
	emit(ProgressEvent{
		Processed:        p,
		Total:            total,
		Percent:          percent,
		CurrentBookmark:  current,
		NewBookmarks:     n,
		UpdatedBookmarks: u,
		Skipped:          sk,
		Failed:           fl,
		Phase:            phase,
	})
}

// runPathB creates the custom taxonomy (discovering one first if the
// caller did not supply one), batch-assigns bookmarks to it, and falls
// back to the keyword classifier for anything the LLM left unassigned
// (spec §4.9). No metadata fetch occurs on this path.
func (o *Orchestrator) runPathB(ctx context.Context, uniques []uniqueBookmark, customTaxonomy []*discover.DiscoveredCategory, emit func(Event)) (categoriesCreated, aiAssignments, successful, failed, skipped int) {
	tree := customTaxonomy
	if tree == nil {
		sample := make([]discover.SampledBookmark, len(uniques))
		topHosts := make(map[string]int)
		folderCounts := make(map[string]int)
		for i, bm := range uniques {
			host := hostOf(bm.URL)
			sample[i] = discover.SampledBookmark{Title: bm.Title, Host: host, SourceFolder: bm.SourceFolder}
			topHosts[host]++
			if bm.SourceFolder != "" {
				folderCounts[bm.SourceFolder]++
			}
		}
		tree = o.discoverer.Discover(ctx, sample, topHosts, folderCounts)
	}

	storageTree := toStorageTree(tree)
	bulkResult, err := o.store.CreateCategoriesBulk(storageTree, true)
	if err != nil {
		failed = len(uniques)
		return
	}
	categoriesCreated = bulkResult.Created

	indexedCats := make([]discover.IndexedCategory, 0, len(bulkResult.CategoryMap))
	slugToName := make(map[string]string)
	i := 0
	for tempID, slug := range bulkResult.CategoryMap {
		_ = tempID
		indexedCats = append(indexedCats, discover.IndexedCategory{Index: i, Name: slug})
		slugToName[slug] = slug
		i++
	}

	indexedBookmarks := make([]discover.IndexedBookmark, len(uniques))
	for j, bm := range uniques {
		indexedBookmarks[j] = discover.IndexedBookmark{Index: j, Title: bm.Title, Host: hostOf(bm.URL)}
	}

	assignResult, assignErr := o.assigner.Assign(ctx, indexedBookmarks, indexedCats, func(assigned, total int) {
		if assigned%fastPathInterval == 0 || assigned == total {
			emit(ProgressEvent{Processed: assigned, Total: total, Percent: percentOf(assigned, total), Phase: "assigning"})
		}
	})

	fallbackEntries := buildFallbackEntries(tree)
	fallbackClassifier := taxonomy.New(fallbackEntries)

	for j, bm := range uniques {
		if o.isCancelled() || ctx.Err() != nil {
			o.mu.Lock()
			o.cancelled = true
			o.mu.Unlock()
			break
		}

		var categorySlug string
		if assignErr == nil {
			if slug, ok := assignResult.Assigned[j]; ok {
				categorySlug = slug
				aiAssignments++
			}
		}
		if categorySlug == "" {
			label := fallbackClassifier.Classify(taxonomy.Bookmark{URL: bm.URL, Title: bm.Title, Description: bm.Description})
			if label != taxonomy.Other {
				categorySlug = storage.Slugify(label)
			}
		}
		if categorySlug == "" {
			categorySlug = fallbackSlug(bulkResult.CategoryMap, tree)
		}

		fields := storage.BookmarkFields{
			RawURL:       bm.URL,
			Title:        bm.Title,
			Description:  bm.Description,
			SourceFolder: bm.SourceFolder,
		}
		if categorySlug != "" {
			fields.CategorySlug = &categorySlug
		}

		_, _, upsertErr := o.store.UpsertBookmark(bm.normalizedURL, fields)
		if upsertErr != nil {
			failed++
		} else {
			successful++
		}

		if (j+1)%fastPathInterval == 0 || j == len(uniques)-1 {
			emit(ProgressEvent{
				Processed: j + 1, Total: len(uniques),
				Percent: percentOf(j+1, len(uniques)), CurrentBookmark: bm.URL, Phase: "assigning",
			})
		}
	}
	return
}

func percentOf(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// fallbackSlug implements spec §4.9's chain: "uncategorized" → "other" →
// first category in the created set.
func fallbackSlug(categoryMap map[string]string, tree []*discover.DiscoveredCategory) string {
	for _, slug := range categoryMap {
		if slug == "uncategorized" {
			return slug
		}
	}
	for _, slug := range categoryMap {
		if slug == "other" {
			return slug
		}
	}
	if len(tree) > 0 {
		return storage.Slugify(tree[0].Name)
	}
	return ""
}

func buildFallbackEntries(tree []*discover.DiscoveredCategory) []taxonomy.Entry {
	var entries []taxonomy.Entry
	var walk func(nodes []*discover.DiscoveredCategory)
	walk = func(nodes []*discover.DiscoveredCategory) {
		for _, n := range nodes {
			entries = append(entries, taxonomy.Entry{
				Name:                n.Name,
				Keywords:            n.Keywords,
				Weight:              1,
				RequireWordBoundary: true,
			})
			walk(n.Children)
		}
	}
	walk(tree)
	return entries
}

func toStorageTree(tree []*discover.DiscoveredCategory) []*storage.CategoryTreeNode {
	var convert func(nodes []*discover.DiscoveredCategory) []*storage.CategoryTreeNode
	convert = func(nodes []*discover.DiscoveredCategory) []*storage.CategoryTreeNode {
		out := make([]*storage.CategoryTreeNode, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, &storage.CategoryTreeNode{
				TempID:      n.TempID,
				Name:        n.Name,
				Description: n.Description,
				Keywords:    n.Keywords,
				Children:    convert(n.Children),
			})
		}
		return out
	}
	return convert(tree)
}

func hostOf(raw string) string {
	const prefix = "://"
	idx := indexOf(raw, prefix)
	if idx < 0 {
		return ""
	}
	rest := raw[idx+len(prefix):]
	for i, c := range rest {
		if c == '/' || c == '?' || c == '#' {
			return rest[:i]
		}
	}
	return rest
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
