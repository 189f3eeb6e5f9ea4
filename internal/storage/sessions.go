package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportSession is the per-run record written exactly once at the end of
// an import, even on partial failure (spec §3).
type ImportSession struct {
	ID          string
	FileName    string
	TotalParsed int
	Successful  int
	Failed      int
	Skipped     int
	CreatedAt   time.Time
}

// CreateImportSession writes session with a freshly generated ID and
// returns the populated record.
func (s *Store) CreateImportSession(fileName string, totalParsed, successful, failed, skipped int) (*ImportSession, error) {
	sess := &ImportSession{
		ID:          uuid.NewString(),
		FileName:    fileName,
		TotalParsed: totalParsed,
		Successful:  successful,
		Failed:      failed,
		Skipped:     skipped,
	}

	err := s.retryWithBackoff(func() error {
		_, execErr := s.db.Exec(
			`INSERT INTO import_sessions (id, file_name, total_parsed, successful, failed, skipped) VALUES (?, ?, ?, ?, ?, ?)`,
			sess.ID, sess.FileName, sess.TotalParsed, sess.Successful, sess.Failed, sess.Skipped,
		)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create import session: %w", err)
	}

	row := s.db.QueryRow(`SELECT created_at FROM import_sessions WHERE id = ?`, sess.ID)
	if err := row.Scan(&sess.CreatedAt); err != nil {
		return nil, fmt.Errorf("storage: read import session timestamp: %w", err)
	}
	return sess, nil
}

// GetImportSession loads a session by ID.
func (s *Store) GetImportSession(id string) (*ImportSession, error) {
	row := s.db.QueryRow(
		`SELECT id, file_name, total_parsed, successful, failed, skipped, created_at FROM import_sessions WHERE id = ?`,
		id,
	)
	var sess ImportSession
	err := row.Scan(&sess.ID, &sess.FileName, &sess.TotalParsed, &sess.Successful, &sess.Failed, &sess.Skipped, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get import session: %w", err)
	}
	return &sess, nil
}
