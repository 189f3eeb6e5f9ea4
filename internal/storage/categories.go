package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Category is a node in the self-referencing category forest (spec §3).
type Category struct {
	Slug        string
	Name        string
	Description string
	ParentSlug  *string
	Keywords    []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify produces the URL-safe form of a category name used as its
// storage key (spec §4.8's slug ↔ name bijection).
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugNonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// EnsureCategory returns the Category for name, creating it (with no
// parent) if absent. Concurrent callers racing to create the same slug
// are resolved by retrying the lookup after an insert conflict.
func (s *Store) EnsureCategory(name string) (*Category, error) {
	return s.ensureCategoryWithParent(name, nil)
}

// EnsureCategoryWithParent is EnsureCategory but links a parent slug,
// creating the parent first via recursive EnsureCategory if it does not
// yet exist (spec §4.8).
func (s *Store) EnsureCategoryWithParent(name string, parentName string) (*Category, error) {
	parent, err := s.EnsureCategory(parentName)
	if err != nil {
		return nil, err
	}
	return s.ensureCategoryWithParent(name, &parent.Slug)
}

func (s *Store) ensureCategoryWithParent(name string, parentSlug *string) (*Category, error) {
	slug := Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("%w: empty category name", ErrConflict)
	}

	if cat, err := s.GetCategory(slug); err == nil {
		return cat, nil
	} else if err != ErrNotFound {
		return nil, err
	}

	err := s.retryWithBackoff(func() error {
		_, execErr := s.db.Exec(
			`INSERT OR IGNORE INTO categories (slug, name, parent_slug, keywords) VALUES (?, ?, ?, '[]')`,
			slug, name, parentSlug,
		)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("storage: ensure category %q: %w", name, err)
	}

	return s.GetCategory(slug)
}

// GetCategory loads a category by slug.
func (s *Store) GetCategory(slug string) (*Category, error) {
	row := s.db.QueryRow(
		`SELECT slug, name, description, parent_slug, keywords, created_at, updated_at FROM categories WHERE slug = ?`,
		slug,
	)
	return scanCategory(row)
}

func scanCategory(row *sql.Row) (*Category, error) {
	var c Category
	var description sql.NullString
	var parentSlug sql.NullString
	var keywordsJSON string

	err := row.Scan(&c.Slug, &c.Name, &description, &parentSlug, &keywordsJSON, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: scan category: %w", err)
	}

	if description.Valid {
		c.Description = description.String
	}
	if parentSlug.Valid {
		c.ParentSlug = &parentSlug.String
	}
	_ = json.Unmarshal([]byte(keywordsJSON), &c.Keywords)

	return &c, nil
}

// ListCategories returns every category in the store.
func (s *Store) ListCategories() ([]*Category, error) {
	rows, err := s.db.Query(`SELECT slug, name, description, parent_slug, keywords, created_at, updated_at FROM categories ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("storage: list categories: %w", err)
	}
	defer rows.Close()

	var out []*Category
	for rows.Next() {
		var c Category
		var description, parentSlug sql.NullString
		var keywordsJSON string
		if err := rows.Scan(&c.Slug, &c.Name, &description, &parentSlug, &keywordsJSON, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan category row: %w", err)
		}
		if description.Valid {
			c.Description = description.String
		}
		if parentSlug.Valid {
			c.ParentSlug = &parentSlug.String
		}
		_ = json.Unmarshal([]byte(keywordsJSON), &c.Keywords)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// CategoryTreeNode is the input shape for CreateCategoriesBulk: a
// temp-id-addressed tree mirroring discover.DiscoveredCategory without an
// import cycle back into that package.
type CategoryTreeNode struct {
	TempID      string
	Name        string
	Description string
	Keywords    []string
	Children    []*CategoryTreeNode
}

// BulkCreateResult reports how many categories were created/updated and
// the temp-id → real-slug mapping the caller needs to resolve bookmark
// assignments made against the discovery tree.
type BulkCreateResult struct {
	Created    int
	Updated    int
	CategoryMap map[string]string
}

// CreateCategoriesBulk persists a discovered category forest in
// parent-first order, optionally clearing all existing categories first
// (after nulling every bookmark's category_slug) when replaceExisting is
// set (spec §4.8). The whole operation is atomic: callers observe either
// the before-state or the after-state.
func (s *Store) CreateCategoriesBulk(tree []*CategoryTreeNode, replaceExisting bool) (*BulkCreateResult, error) {
	result := &BulkCreateResult{CategoryMap: make(map[string]string)}

	err := s.retryWithBackoff(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if replaceExisting {
			if _, err := tx.Exec(`UPDATE bookmarks SET category_slug = NULL`); err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM categories`); err != nil {
				return err
			}
		}

		var walk func(nodes []*CategoryTreeNode, parentSlug *string) error
		walk = func(nodes []*CategoryTreeNode, parentSlug *string) error {
			for _, n := range nodes {
				slug := Slugify(n.Name)
				kwJSON, _ := json.Marshal(n.Keywords)

				var existing int
				if scanErr := tx.QueryRow(`SELECT COUNT(*) FROM categories WHERE slug = ?`, slug).Scan(&existing); scanErr != nil {
					return fmt.Errorf("create category %q: %w", n.Name, scanErr)
				}

				_, err := tx.Exec(
					`INSERT INTO categories (slug, name, description, parent_slug, keywords)
					 VALUES (?, ?, ?, ?, ?)
					 ON CONFLICT(slug) DO UPDATE SET name=excluded.name, description=excluded.description, parent_slug=excluded.parent_slug, keywords=excluded.keywords, updated_at=CURRENT_TIMESTAMP`,
					slug, n.Name, n.Description, parentSlug, string(kwJSON),
				)
				if err != nil {
					return fmt.Errorf("create category %q: %w", n.Name, err)
				}
				if existing > 0 {
					result.Updated++
				} else {
					result.Created++
				}
				result.CategoryMap[n.TempID] = slug

				if err := walk(n.Children, &slug); err != nil {
					return err
				}
			}
			return nil
		}

		if err := walk(tree, nil); err != nil {
			return err
		}

		return tx.Commit()
	})

	if err != nil {
		return nil, fmt.Errorf("storage: create categories bulk: %w", err)
	}
	return result, nil
}

// MergeResult reports the bookkeeping MergeCategories performed.
type MergeResult struct {
	MergedBookmarks int
	MergedKeywords  int
}

// MergeCategories unions keyword sets, reparents source's children and
// bookmarks to target, and deletes source. Source and target must both
// exist and differ; the whole operation is atomic (spec §4.8).
func (s *Store) MergeCategories(sourceSlug, targetSlug string) (*MergeResult, error) {
	if sourceSlug == targetSlug {
		return nil, ErrSameCategory
	}

	var result MergeResult

	err := s.retryWithBackoff(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		source, err := queryCategoryTx(tx, sourceSlug)
		if err != nil {
			return err
		}
		target, err := queryCategoryTx(tx, targetSlug)
		if err != nil {
			return err
		}

		merged := mergeKeywords(source.Keywords, target.Keywords)
		result.MergedKeywords = len(merged) - len(target.Keywords)
		if result.MergedKeywords < 0 {
			result.MergedKeywords = 0
		}
		kwJSON, _ := json.Marshal(merged)

		if _, err := tx.Exec(`UPDATE categories SET keywords = ? WHERE slug = ?`, string(kwJSON), target.Slug); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE categories SET parent_slug = ? WHERE parent_slug = ?`, target.Slug, source.Slug); err != nil {
			return err
		}

		res, err := tx.Exec(`UPDATE bookmarks SET category_slug = ? WHERE category_slug = ?`, target.Slug, source.Slug)
		if err != nil {
			return err
		}
		affected, _ := res.RowsAffected()
		result.MergedBookmarks = int(affected)

		if _, err := tx.Exec(`DELETE FROM categories WHERE slug = ?`, source.Slug); err != nil {
			return err
		}

		return tx.Commit()
	})

	if err != nil {
		return nil, fmt.Errorf("storage: merge categories: %w", err)
	}
	return &result, nil
}

func queryCategoryTx(tx *sql.Tx, slug string) (*Category, error) {
	row := tx.QueryRow(`SELECT slug, name, description, parent_slug, keywords, created_at, updated_at FROM categories WHERE slug = ?`, slug)

	var c Category
	var description, parentSlug sql.NullString
	var keywordsJSON string
	err := row.Scan(&c.Slug, &c.Name, &description, &parentSlug, &keywordsJSON, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if description.Valid {
		c.Description = description.String
	}
	if parentSlug.Valid {
		c.ParentSlug = &parentSlug.String
	}
	_ = json.Unmarshal([]byte(keywordsJSON), &c.Keywords)
	return &c, nil
}

func mergeKeywords(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, kw := range list {
			if !seen[kw] {
				seen[kw] = true
				out = append(out, kw)
			}
		}
	}
	return out
}

// builtinTaxonomyNames is the list EnsureDefaults seeds; it mirrors
// the 10 root names in internal/taxonomy/builtin.yaml without importing
// that package (keeping storage free of a dependency on the classifier).
var builtinTaxonomyNames = []string{
	"Development", "Documentation", "News", "Food", "Home & Garden",
	"Pharmaceutical Companies", "Health", "Shopping", "Entertainment", "Research",
}

// EnsureDefaults idempotently seeds the built-in root taxonomy; it is a
// no-op if any category already exists (spec §4.8).
func (s *Store) EnsureDefaults() error {
	cats, err := s.ListCategories()
	if err != nil {
		return fmt.Errorf("storage: ensure defaults: %w", err)
	}
	if len(cats) > 0 {
		return nil
	}

	for _, name := range builtinTaxonomyNames {
		if _, err := s.EnsureCategory(name); err != nil {
			return fmt.Errorf("storage: ensure defaults: seed %q: %w", name, err)
		}
	}
	return nil
}
