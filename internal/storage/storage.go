// Package storage persists bookmarks, categories, and import sessions in
// a local SQLite/libSQL database (spec §4.8).
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

// Sentinel errors checked with errors.Is, matching the teacher's
// err == sql.ErrNoRows style rather than a generic error-code framework.
var (
	ErrNotFound     = errors.New("storage: not found")
	ErrConflict     = errors.New("storage: conflict")
	ErrSameCategory = errors.New("storage: source and target category are the same")
	ErrUnavailable  = errors.New("storage: unavailable")
)

// Store wraps the single long-lived SQL connection used by every worker
// (spec §5, "shared resources").
type Store struct {
	db *sql.DB
}

// Open creates or attaches to a local libSQL database file, in WAL mode
// with a single-connection pool, the same settings the teacher's
// storage.New uses to avoid SQLite lock contention.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = "file:fury.db"
	}
	if !strings.Contains(dbPath, "?") {
		dbPath += "?_journal=WAL&_timeout=10000&_sync=NORMAL&_cache_size=1000"
	}

	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrUnavailable, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.initializeSchema(); err != nil {
		return nil, fmt.Errorf("%w: initialize schema: %v", ErrUnavailable, err)
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection, for tests and the background
// sweep that needs raw access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// retryWithBackoff executes operation with exponential backoff on SQLite
// lock contention, exactly the teacher's retryWithBackoff shape.
func (s *Store) retryWithBackoff(operation func() error) error {
	const maxRetries = 5
	const baseDelay = 100 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "SQLite failure") {
			if attempt < maxRetries-1 {
				time.Sleep(baseDelay * time.Duration(1<<attempt))
				continue
			}
		}
		return err
	}
	return fmt.Errorf("%w: operation failed after retries", ErrUnavailable)
}

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	slug TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	parent_slug TEXT REFERENCES categories(slug) ON DELETE SET NULL,
	keywords TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS bookmarks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	normalized_url TEXT NOT NULL UNIQUE,
	raw_url TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	source_folder TEXT,
	category_slug TEXT REFERENCES categories(slug) ON DELETE SET NULL,
	meta_title TEXT,
	meta_description TEXT,
	og_title TEXT,
	og_description TEXT,
	og_image TEXT,
	keywords TEXT,
	summary TEXT,
	suggested_category TEXT,
	confidence INTEGER,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS import_sessions (
	id TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	total_parsed INTEGER NOT NULL,
	successful INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_bookmarks_category ON bookmarks(category_slug);
CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_slug);

CREATE VIRTUAL TABLE IF NOT EXISTS bookmarks_fts USING fts5(
	title, description, content='bookmarks', content_rowid='id', tokenize='trigram'
);

CREATE TRIGGER IF NOT EXISTS bookmarks_fts_insert AFTER INSERT ON bookmarks BEGIN
	INSERT INTO bookmarks_fts(rowid, title, description) VALUES (new.id, new.title, new.description);
END;

CREATE TRIGGER IF NOT EXISTS bookmarks_fts_update AFTER UPDATE ON bookmarks BEGIN
	INSERT INTO bookmarks_fts(bookmarks_fts, rowid, title, description) VALUES ('delete', old.id, old.title, old.description);
	INSERT INTO bookmarks_fts(rowid, title, description) VALUES (new.id, new.title, new.description);
END;

CREATE TRIGGER IF NOT EXISTS bookmarks_fts_delete AFTER DELETE ON bookmarks BEGIN
	INSERT INTO bookmarks_fts(bookmarks_fts, rowid, title, description) VALUES ('delete', old.id, old.title, old.description);
END;
`

func (s *Store) initializeSchema() error {
	_, err := s.db.Exec(schema)
	return err
}
