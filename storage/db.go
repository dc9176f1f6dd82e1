package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type DB struct {
	conn *sql.DB
}

// Open opens the database and initializes the schema
func Open(configDir string) (*DB, error) {
	dbPath := filepath.Join(configDir, "keydrip.db")

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the database schema
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,

		-- Outcome: finished, stopped or error
		outcome TEXT NOT NULL,
		error_message TEXT,

		-- Text metrics
		char_count INTEGER NOT NULL,
		final_percent INTEGER NOT NULL,

		-- Pacing used for the run
		duration_ms INTEGER NOT NULL,
		base_delay_ms INTEGER NOT NULL,
		jitter BOOLEAN NOT NULL,
		jitter_min_ms INTEGER NOT NULL,
		jitter_max_ms INTEGER NOT NULL,

		-- Destination window at session start
		target_title TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome);
	`

	_, err := db.conn.Exec(schema)
	return err
}
