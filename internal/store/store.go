// Package store caches module identification runs.
// Parsed genes are cached as gob files (fast, pure Go).
// Module results are cached in DuckDB (queryable, keyed by run).
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for caching module results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
// A module row is one (enhancer, TF, target gene) edge; seq orders the
// (enhancer, TF) pairs as they were reported.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR PRIMARY KEY,
			created_at TIMESTAMP,
			tf_cutoff BIGINT,
			r_cutoff DOUBLE,
			p_cutoff DOUBLE,
			enhancers BIGINT,
			modules BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS modules (
			run_id VARCHAR,
			seq BIGINT,
			enhancer VARCHAR,
			tf VARCHAR,
			target_gene VARCHAR
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
