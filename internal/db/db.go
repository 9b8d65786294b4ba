// Package db provides the SQLite graph store: persisted graph snapshots and their edges.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		DB:   db,
		path: dbPath,
	}, nil
}

// Migrate runs database migrations
func (db *DB) Migrate() error {
	migrations := []string{
		// Service vertices
		`CREATE TABLE IF NOT EXISTS services (
			name TEXT PRIMARY KEY,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		// Graph snapshots, one row per collection and window
		`CREATE TABLE IF NOT EXISTS graphs (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			name TEXT NOT NULL,
			start_ts INTEGER NOT NULL,
			end_ts INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (collection, name)
		)`,
		// Snapshot edges
		`CREATE TABLE IF NOT EXISTS graph_edges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			graph_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			from_service TEXT NOT NULL,
			to_service TEXT NOT NULL,
			links INTEGER NOT NULL,
			FOREIGN KEY (graph_id) REFERENCES graphs(id) ON DELETE CASCADE,
			FOREIGN KEY (from_service) REFERENCES services(name),
			FOREIGN KEY (to_service) REFERENCES services(name)
		)`,
		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_graphs_collection_end ON graphs(collection, end_ts)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_edges_graph ON graph_edges(graph_id, position)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
