package main

import (
	"log"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"fury/internal/api"
	"fury/internal/discover"
	"fury/internal/enrich"
	"fury/internal/storage"
	"fury/internal/taxonomy"
)

func main() {
	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	dbPath := os.Getenv("FURY_DB_PATH")
	if dbPath == "" {
		dbPath = "file:fury.db"
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	if err := store.EnsureDefaults(); err != nil {
		log.Fatalf("Failed to seed default taxonomy: %v", err)
	}

	fetcher := enrich.New()
	classifier := taxonomy.New(taxonomy.BuiltinTaxonomy())
	discoverer := discover.NewDiscoverer()
	assigner := discover.NewAssigner()

	server := api.NewServer(store, fetcher, classifier, discoverer, assigner)
	server.Register(e)

	if os.Getenv("OPENAI_API_KEY") != "" {
		log.Println("OpenAI API key found - starting background categorization sweep")
		startBackgroundSweep(store, classifier)
	} else {
		log.Println("No OpenAI API key found - custom-taxonomy discovery falls back to clustering")
	}

	log.Println("Server starting on :8080")
	log.Println("Available endpoints:")
	log.Println("  POST   /api/import")
	log.Println("  POST   /api/analyze")
	log.Println("  POST   /api/categories/bulk")
	log.Println("  POST   /api/categories/merge")
	log.Println("  GET    /api/export")
	log.Println("  GET    /api/bookmarks")
	log.Println("  GET    /api/categories")
	log.Println("  GET    /api/health")

	log.Fatal(e.Start(":8080"))
}

// startBackgroundSweep periodically assigns a category to any bookmark
// the import pipeline left uncategorized (e.g. a path-B run whose
// fallback slug resolution found nothing usable), mirroring the
// teacher's background-goroutine-gated-on-env-var pattern in the
// original main.go.
func startBackgroundSweep(store *storage.Store, classifier *taxonomy.Classifier) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			pending, err := store.BookmarksWithoutCategory(20)
			if err != nil {
				log.Printf("background sweep: list pending: %v", err)
				continue
			}
			if len(pending) == 0 {
				continue
			}

			categorized := 0
			for _, bm := range pending {
				label := classifier.Classify(taxonomy.Bookmark{
					URL:         bm.RawURL,
					Title:       bm.Title,
					Description: bm.Description,
				})
				if label == taxonomy.Other {
					continue
				}
				cat, err := store.EnsureCategory(label)
				if err != nil {
					continue
				}
				if _, _, err := store.UpsertBookmark(bm.NormalizedURL, storage.BookmarkFields{
					RawURL:       bm.RawURL,
					Title:        bm.Title,
					Description:  bm.Description,
					SourceFolder: bm.SourceFolder,
					CategorySlug: &cat.Slug,
				}); err == nil {
					categorized++
				}
			}
			log.Printf("background sweep: categorized %d bookmarks", categorized)
		}
	}()
}
