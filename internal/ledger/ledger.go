// Package ledger provides an append-only history of recorded trigger events.
package ledger

import (
	"context"
	"database/sql"
	"time"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"event_id"`
	Kind      string    `json:"kind"`
	Device    string    `json:"device"`
	Active    bool      `json:"active"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

// Ledger provides append-only event logging
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append adds an event to the ledger. A repeated event ID is ignored.
func (l *Ledger) Append(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO event_ledger (event_id, kind, device, active, timestamp, source)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.EventID, e.Kind, e.Device, e.Active, e.Timestamp.UTC().UnixMilli(), e.Source)
	return err
}

// Recent returns the newest entries, newest first
func (l *Ledger) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, event_id, kind, device, active, timestamp, source
		FROM event_ledger
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ByDevice returns the newest entries for one device, newest first
func (l *Ledger) ByDevice(ctx context.Context, device string, limit int) ([]*Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, event_id, kind, device, active, timestamp, source
		FROM event_ledger
		WHERE device = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, device, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteOlderThan removes entries recorded more than retention ago.
func (l *Ledger) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().UnixMilli()
	result, err := l.db.ExecContext(ctx, `
		DELETE FROM event_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var source sql.NullString
		var timestamp int64

		if err := rows.Scan(
			&entry.ID, &entry.EventID, &entry.Kind, &entry.Device, &entry.Active, &timestamp, &source,
		); err != nil {
			return nil, err
		}

		entry.Timestamp = time.UnixMilli(timestamp).UTC()
		if source.Valid {
			entry.Source = source.String
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
