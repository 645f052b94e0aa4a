// Package store implements the durable key-value style persistence layer on
// SQLite.
//
// Each logical table (catalog, users, carts, pending orders, settings) is
// loaded whole at startup and saved whole on every mutation. A failed load
// degrades to empty in-memory tables instead of crashing; a failed save is
// logged by the caller and the system continues on in-memory state.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store owns the SQLite database holding all durable storefront state.
type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - a single-writer connection pool (SQLite allows one writer)
//
// Open is idempotent: the schema is applied with IF NOT EXISTS.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// overwrite runs fn inside a transaction that first empties the named tables.
// This is the full-table overwrite primitive every Save* method builds on:
// a save either lands whole or not at all.
func (s *Store) overwrite(fn func(tx *sql.Tx) error, tables ...string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	for _, table := range tables {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			tx.Rollback()
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("save %v: %w", tables, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %v: %w", tables, err)
	}
	return nil
}
