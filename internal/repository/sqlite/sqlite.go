// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. It is used through database/sql:
//   - sql.DB     : a connection pool (NOT a single connection!)
//   - sql.Row    : a single result row
//   - sql.Rows   : multiple result rows (must be closed!)
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryContext / db.ExecContext     → runs queries
//  3. rows.Scan(&field1, &field2)          → reads results into Go variables
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql in its init().
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
// It implements repository.SavedCardRepository and repository.PublicationRepository.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/servicecard.db" → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// IN-MEMORY DATABASES ARE PER CONNECTION:
	// every new connection to ":memory:" sees a brand new, empty database.
	// Pinning the pool to one connection keeps the migrated schema visible
	// to every query.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode lets readers proceed while the
	// background writer is persisting the saved-cards record.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// A write that finds the file locked waits up to 5s instead of failing.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
//
//	db, err := sqlite.New("data/servicecard.db")
//	if err != nil { ... }
//	defer db.Close()
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs all database migrations.
// CREATE TABLE IF NOT EXISTS is safe to run on every start.
func (db *DB) migrate() error {
	// One row per storage namespace. payload is the JSON array of saved
	// cards; seq is the sequence number of the write that produced it.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS saved_card_records (
			namespace  TEXT PRIMARY KEY,
			payload    TEXT NOT NULL DEFAULT '[]',
			seq        INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating saved_card_records table: %w", err)
	}

	// Latest published image per saved card.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS publications (
			card_id      TEXT PRIMARY KEY,
			object_key   TEXT NOT NULL,
			url          TEXT NOT NULL,
			published_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating publications table: %w", err)
	}

	return nil
}
