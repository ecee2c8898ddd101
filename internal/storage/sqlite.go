package storage

import (
	"context"
	"database/sql"
	"path/filepath"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/malonaz/companion/internal/file"
)

// SQLite implements a SQLite backed storage.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and initializes if needed) a SQLite database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := file.CreateDirectoryIfNotExist(filepath.Dir(path)); err != nil {
			return nil, errors.Wrap(err, "creating database directory")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	// A single writer keeps in-memory databases on one connection.
	db.SetMaxOpenConns(1)

	// Create kv table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			update_timestamp INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating kv table")
	}

	return &SQLite{
		db: db,
	}, nil
}

// Read a value.
func (s *SQLite) Read(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying value")
	}
	return value, nil
}

// Write a value.
func (s *SQLite) Write(ctx context.Context, key string, value []byte) error {
	// Use REPLACE INTO to handle both insert and update cases
	_, err := s.db.ExecContext(ctx, `
		REPLACE INTO kv (key, value, update_timestamp)
		VALUES (?, ?, strftime('%s', 'now'))
	`, key, value)
	if err != nil {
		return errors.Wrap(err, "writing value to database")
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}
