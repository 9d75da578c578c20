// Package db opens the triggerd SQLite database and migrates its schema.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// migrations are applied in order; PRAGMA user_version records how many ran.
// Append only.
var migrations = []string{
	// 1: recorded trigger events
	`CREATE TABLE event_ledger (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		device TEXT NOT NULL,
		active INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		source TEXT
	);
	CREATE UNIQUE INDEX idx_ledger_event_id ON event_ledger(event_id);
	CREATE INDEX idx_ledger_ts ON event_ledger(timestamp);
	CREATE INDEX idx_ledger_device_ts ON event_ledger(device, timestamp);`,

	// 2: versioned JSON documents keyed by (kind, id)
	`CREATE TABLE resource_state (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		payload TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (kind, id)
	);`,
}

// DB wraps the SQLite connection pool.
type DB struct {
	*sql.DB
}

// Open opens dbPath in WAL mode and applies pending migrations.
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &DB{conn}
	if err := d.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

// SchemaVersion returns the number of applied migrations.
func (d *DB) SchemaVersion() (int, error) {
	var v int
	if err := d.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func (d *DB) migrate() error {
	current, err := d.SchemaVersion()
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this build (%d)", current, len(migrations))
	}

	for i := current; i < len(migrations); i++ {
		tx, err := d.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		log.Info().Int("version", i+1).Msg("Applied database migration")
	}
	return nil
}
