// Package cache provides SQLite-based caching of fetched issue threads.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/LachyFS/kanban-md/internal/gh"
)

// DB is a SQLite-backed cache of issue threads keyed by (repo, number).
// Each entry carries the ETag of the fetch that produced it, so the next
// fetch can be a conditional request.
type DB struct {
	path string
	conn *sql.DB
}

// Entry is one cached thread.
type Entry struct {
	Repo      string
	Number    int
	ETag      string
	FetchedAt time.Time
	Thread    gh.Thread
}

const createThreadsTableSQL = `
CREATE TABLE IF NOT EXISTS threads (
    repo TEXT NOT NULL,
    number INTEGER NOT NULL,
    etag TEXT,
    fetched_at TEXT,
    thread TEXT,  -- JSON-encoded issue + comments
    PRIMARY KEY (repo, number)
);
`

// Open creates or opens a SQLite database at the given path and
// initializes the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer, so we limit to one connection
	// to prevent "database is locked" errors.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if _, err := conn.Exec(createThreadsTableSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create threads table: %w", err)
	}

	return &DB{path: path, conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Get returns the cached entry for (repo, number), or nil if absent.
func (db *DB) Get(repo string, number int) (*Entry, error) {
	row := db.conn.QueryRow(
		`SELECT etag, fetched_at, thread FROM threads WHERE repo = ? AND number = ?`,
		repo, number,
	)

	var etag, fetchedAt, threadJSON string
	if err := row.Scan(&etag, &fetchedAt, &threadJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query thread: %w", err)
	}

	entry := &Entry{Repo: repo, Number: number, ETag: etag}
	if t, err := time.Parse(time.RFC3339, fetchedAt); err == nil {
		entry.FetchedAt = t
	}
	if err := json.Unmarshal([]byte(threadJSON), &entry.Thread); err != nil {
		return nil, fmt.Errorf("failed to decode cached thread: %w", err)
	}
	return entry, nil
}

// Put inserts or replaces the cached thread for (repo, number).
func (db *DB) Put(repo string, number int, etag string, thread *gh.Thread) error {
	threadJSON, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("failed to encode thread: %w", err)
	}

	_, err = db.conn.Exec(
		`INSERT OR REPLACE INTO threads (repo, number, etag, fetched_at, thread) VALUES (?, ?, ?, ?, ?)`,
		repo, number, etag, time.Now().UTC().Format(time.RFC3339), string(threadJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert thread: %w", err)
	}
	return nil
}
