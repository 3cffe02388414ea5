// Package history records every handled code request in sqlite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Entry struct {
	RequestID string    `json:"request_id"`
	Mode      string    `json:"mode"`
	Input     string    `json:"input"`
	Response  string    `json:"response"`
	FilePath  string    `json:"file_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		input TEXT NOT NULL,
		response TEXT NOT NULL,
		file_path TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO requests (request_id, mode, input, response, file_path, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		e.RequestID, e.Mode, e.Input, e.Response, e.FilePath, e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT request_id, mode, input, response, file_path, created_at FROM requests ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Entry{}
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.RequestID, &e.Mode, &e.Input, &e.Response, &e.FilePath, &created); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		items = append(items, e)
	}
	return items, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
