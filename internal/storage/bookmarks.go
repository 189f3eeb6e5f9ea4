package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Bookmark is one persisted entry keyed by its normalized URL (spec §3).
type Bookmark struct {
	ID                int
	NormalizedURL     string
	RawURL            string
	Title             string
	Description       string
	SourceFolder      string
	CategorySlug      *string
	MetaTitle         string
	MetaDescription   string
	OGTitle           string
	OGDescription     string
	OGImage           string
	Keywords          []string
	Summary           string
	SuggestedCategory string
	Confidence        int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BookmarkFields carries the mutable attributes UpsertBookmark will write.
// Zero-value fields are written as-is (the caller builds a complete
// record); this matches spec §4.8's "update mutable fields" contract for
// the fields the orchestrator actually produces per pipeline path.
type BookmarkFields struct {
	RawURL            string
	Title             string
	Description       string
	SourceFolder      string
	CategorySlug      *string
	MetaTitle         string
	MetaDescription   string
	OGTitle           string
	OGDescription     string
	OGImage           string
	Keywords          []string
	Summary           string
	SuggestedCategory string
	Confidence        int
}

// UpsertBookmark inserts a new bookmark row for normalizedURL, or updates
// the mutable fields of an existing one (spec §4.8). It reports whether
// the row was newly created.
func (s *Store) UpsertBookmark(normalizedURL string, fields BookmarkFields) (bm *Bookmark, created bool, err error) {
	kwJSON, _ := json.Marshal(fields.Keywords)

	err = s.retryWithBackoff(func() error {
		var existing int
		if scanErr := s.db.QueryRow(`SELECT COUNT(*) FROM bookmarks WHERE normalized_url = ?`, normalizedURL).Scan(&existing); scanErr != nil {
			return scanErr
		}
		_, execErr := s.db.Exec(
			`INSERT INTO bookmarks (
				normalized_url, raw_url, title, description, source_folder, category_slug,
				meta_title, meta_description, og_title, og_description, og_image,
				keywords, summary, suggested_category, confidence
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(normalized_url) DO UPDATE SET
				raw_url=excluded.raw_url, title=excluded.title, description=excluded.description,
				source_folder=excluded.source_folder, category_slug=excluded.category_slug,
				meta_title=excluded.meta_title, meta_description=excluded.meta_description,
				og_title=excluded.og_title, og_description=excluded.og_description, og_image=excluded.og_image,
				keywords=excluded.keywords, summary=excluded.summary,
				suggested_category=excluded.suggested_category, confidence=excluded.confidence,
				updated_at=CURRENT_TIMESTAMP`,
			normalizedURL, fields.RawURL, fields.Title, fields.Description, fields.SourceFolder, fields.CategorySlug,
			fields.MetaTitle, fields.MetaDescription, fields.OGTitle, fields.OGDescription, fields.OGImage,
			string(kwJSON), fields.Summary, fields.SuggestedCategory, fields.Confidence,
		)
		if execErr != nil {
			return execErr
		}
		created = existing == 0
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("storage: upsert bookmark %s: %w", normalizedURL, err)
	}

	bm, err = s.GetBookmarkByURL(normalizedURL)
	return bm, created, err
}

// GetBookmarkByURL loads a bookmark by its normalized URL.
func (s *Store) GetBookmarkByURL(normalizedURL string) (*Bookmark, error) {
	row := s.db.QueryRow(bookmarkSelect+` WHERE normalized_url = ?`, normalizedURL)
	return scanBookmark(row)
}

const bookmarkSelect = `SELECT id, normalized_url, raw_url, title, description, source_folder, category_slug,
	meta_title, meta_description, og_title, og_description, og_image, keywords, summary,
	suggested_category, confidence, created_at, updated_at FROM bookmarks`

func scanBookmark(row *sql.Row) (*Bookmark, error) {
	var bm Bookmark
	var description, sourceFolder, categorySlug sql.NullString
	var metaTitle, metaDescription, ogTitle, ogDescription, ogImage sql.NullString
	var keywordsJSON, summary, suggestedCategory sql.NullString
	var confidence sql.NullInt64

	err := row.Scan(
		&bm.ID, &bm.NormalizedURL, &bm.RawURL, &bm.Title, &description, &sourceFolder, &categorySlug,
		&metaTitle, &metaDescription, &ogTitle, &ogDescription, &ogImage,
		&keywordsJSON, &summary, &suggestedCategory, &confidence, &bm.CreatedAt, &bm.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: scan bookmark: %w", err)
	}

	bm.Description = description.String
	bm.SourceFolder = sourceFolder.String
	if categorySlug.Valid {
		bm.CategorySlug = &categorySlug.String
	}
	bm.MetaTitle = metaTitle.String
	bm.MetaDescription = metaDescription.String
	bm.OGTitle = ogTitle.String
	bm.OGDescription = ogDescription.String
	bm.OGImage = ogImage.String
	if keywordsJSON.Valid {
		_ = json.Unmarshal([]byte(keywordsJSON.String), &bm.Keywords)
	}
	bm.Summary = summary.String
	bm.SuggestedCategory = suggestedCategory.String
	bm.Confidence = int(confidence.Int64)

	return &bm, nil
}

// ListBookmarks returns every bookmark, optionally filtered to one
// category's subtree (categorySlugs nil/empty means no filter).
func (s *Store) ListBookmarks(categorySlugs []string) ([]*Bookmark, error) {
	query := bookmarkSelect
	args := make([]any, 0, len(categorySlugs))
	if len(categorySlugs) > 0 {
		placeholders := make([]string, len(categorySlugs))
		for i, slug := range categorySlugs {
			placeholders[i] = "?"
			args = append(args, slug)
		}
		query += " WHERE category_slug IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list bookmarks: %w", err)
	}
	defer rows.Close()

	return scanBookmarkRows(rows)
}

func scanBookmarkRows(rows *sql.Rows) ([]*Bookmark, error) {
	var out []*Bookmark
	for rows.Next() {
		var bm Bookmark
		var description, sourceFolder, categorySlug sql.NullString
		var metaTitle, metaDescription, ogTitle, ogDescription, ogImage sql.NullString
		var keywordsJSON, summary, suggestedCategory sql.NullString
		var confidence sql.NullInt64

		if err := rows.Scan(
			&bm.ID, &bm.NormalizedURL, &bm.RawURL, &bm.Title, &description, &sourceFolder, &categorySlug,
			&metaTitle, &metaDescription, &ogTitle, &ogDescription, &ogImage,
			&keywordsJSON, &summary, &suggestedCategory, &confidence, &bm.CreatedAt, &bm.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: scan bookmark row: %w", err)
		}

		bm.Description = description.String
		bm.SourceFolder = sourceFolder.String
		if categorySlug.Valid {
			bm.CategorySlug = &categorySlug.String
		}
		bm.MetaTitle = metaTitle.String
		bm.MetaDescription = metaDescription.String
		bm.OGTitle = ogTitle.String
		bm.OGDescription = ogDescription.String
		bm.OGImage = ogImage.String
		if keywordsJSON.Valid {
			_ = json.Unmarshal([]byte(keywordsJSON.String), &bm.Keywords)
		}
		bm.Summary = summary.String
		bm.SuggestedCategory = suggestedCategory.String
		bm.Confidence = int(confidence.Int64)

		out = append(out, &bm)
	}
	return out, rows.Err()
}

// SearchBookmarks does a substring search over title/description via the
// trigram-tokenized FTS5 virtual table (spec's Non-goals permit substring
// match explicitly). Queries shorter than three characters match nothing.
func (s *Store) SearchBookmarks(query string) ([]*Bookmark, error) {
	rows, err := s.db.Query(
		`SELECT b.id, b.normalized_url, b.raw_url, b.title, b.description, b.source_folder, b.category_slug,
			b.meta_title, b.meta_description, b.og_title, b.og_description, b.og_image, b.keywords, b.summary,
			b.suggested_category, b.confidence, b.created_at, b.updated_at
		 FROM bookmarks_fts f JOIN bookmarks b ON b.id = f.rowid
		 WHERE bookmarks_fts MATCH ? ORDER BY rank`,
		query,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: search bookmarks: %w", err)
	}
	defer rows.Close()

	return scanBookmarkRows(rows)
}

// BookmarksWithoutCategory returns up to limit bookmarks whose
// category_slug is null, used by the background sweep to retry rule-based
// classification for them.
func (s *Store) BookmarksWithoutCategory(limit int) ([]*Bookmark, error) {
	rows, err := s.db.Query(bookmarkSelect+` WHERE category_slug IS NULL ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: bookmarks without category: %w", err)
	}
	defer rows.Close()

	return scanBookmarkRows(rows)
}
