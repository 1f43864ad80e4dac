package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New opens (or creates) the SQLite database at the given path.
// Pragmas ride on the DSN so they apply to every pooled connection.
func New(path string) (*DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ SQLite database connected")

	return &DB{db}, nil
}

// Initialize creates all required tables
func (db *DB) Initialize() error {
	log.Println("🔍 Checking database schema...")

	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		category         TEXT NOT NULL DEFAULT '',
		description      TEXT NOT NULL DEFAULT '',
		tags             TEXT NOT NULL DEFAULT '',
		ports            TEXT NOT NULL DEFAULT '',
		script_primary   TEXT NOT NULL,
		script_alternate TEXT NOT NULL DEFAULT '',
		extra_artifacts  TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);

	CREATE TABLE IF NOT EXISTS embeddings (
		id       TEXT PRIMARY KEY,
		vector   BLOB NOT NULL,
		dims     INTEGER NOT NULL,
		name     TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT ''
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Println("✅ Database initialized successfully")
	return nil
}
