// Package history persists the recent-file list: every file opened and every
// session loaded is recorded so the CLI and open dialogs can offer them again.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/himena-app/himena/internal/log"
)

// Entry kinds. Sessions are listed separately from plain files.
const (
	KindFile    = "file"
	KindSession = "session"
)

const schema = `
CREATE TABLE IF NOT EXISTS recent_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	path TEXT NOT NULL,
	plugin TEXT NOT NULL DEFAULT '',
	opened_at TIMESTAMP NOT NULL,
	UNIQUE(kind, path)
);
CREATE INDEX IF NOT EXISTS idx_recent_files_kind_opened
	ON recent_files(kind, opened_at DESC);
`

// Entry is one recorded open.
type Entry struct {
	Path     string
	Plugin   string
	Kind     string
	OpenedAt time.Time
}

// Store is the sqlite-backed recent-file history.
type Store struct {
	db         *sql.DB
	maxEntries int
}

// NewStore opens (creating if necessary) the history database at path.
func NewStore(path string, maxEntries int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	if maxEntries <= 0 {
		maxEntries = 60
	}
	return &Store{db: db, maxEntries: maxEntries}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Record stores an open of path, replacing any previous entry for the same
// path so it moves to the top of the list.
func (s *Store) Record(kind, path, plugin string) error {
	_, err := s.db.Exec(
		`INSERT INTO recent_files (kind, path, plugin, opened_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(kind, path) DO UPDATE SET plugin = excluded.plugin, opened_at = excluded.opened_at`,
		kind, path, plugin, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording %s %q: %w", kind, path, err)
	}
	log.Debug(log.CatHistory, "recorded", "kind", kind, "path", path, "plugin", plugin)
	return s.prune(kind)
}

// Recent returns up to limit entries of the given kind, most recent first.
// A non-positive limit uses the store's configured maximum.
func (s *Store) Recent(kind string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = s.maxEntries
	}
	rows, err := s.db.Query(
		`SELECT path, plugin, kind, opened_at FROM recent_files
		 WHERE kind = ? ORDER BY opened_at DESC, id DESC LIMIT ?`,
		kind, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent %s entries: %w", kind, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.Plugin, &e.Kind, &e.OpenedAt); err != nil {
			return nil, fmt.Errorf("scanning recent entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Forget removes the entry for path, if present.
func (s *Store) Forget(kind, path string) error {
	_, err := s.db.Exec(`DELETE FROM recent_files WHERE kind = ? AND path = ?`, kind, path)
	if err != nil {
		return fmt.Errorf("forgetting %s %q: %w", kind, path, err)
	}
	return nil
}

// prune drops the oldest entries beyond the configured maximum.
func (s *Store) prune(kind string) error {
	_, err := s.db.Exec(
		`DELETE FROM recent_files WHERE kind = ? AND id NOT IN (
			SELECT id FROM recent_files WHERE kind = ?
			ORDER BY opened_at DESC, id DESC LIMIT ?
		)`,
		kind, kind, s.maxEntries,
	)
	if err != nil {
		return fmt.Errorf("pruning %s history: %w", kind, err)
	}
	return nil
}
