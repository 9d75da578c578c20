// Package storage keeps versioned JSON documents in the resource_state table.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Document is one stored payload. Version starts at 1 and grows on every Put.
type Document struct {
	Kind      string
	ID        string
	Payload   []byte
	Version   int64
	UpdatedAt time.Time
}

// Store reads and writes documents keyed by (kind, id).
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a store on db. The schema comes from package db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Get returns the document or nil when it does not exist.
func (s *Store) Get(ctx context.Context, kind, id string) (*Document, error) {
	doc := Document{Kind: kind, ID: id}
	var payload string
	var updated int64

	err := s.db.QueryRowContext(ctx,
		`SELECT payload, version, updated_at FROM resource_state WHERE kind = ? AND id = ?`,
		kind, id,
	).Scan(&payload, &doc.Version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", kind, id, err)
	}

	doc.Payload = []byte(payload)
	doc.UpdatedAt = time.Unix(updated, 0)
	return &doc, nil
}

// Put writes payload and returns the new version.
func (s *Store) Put(ctx context.Context, kind, id string, payload []byte) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO resource_state (kind, id, payload, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			payload = excluded.payload,
			version = resource_state.version + 1,
			updated_at = excluded.updated_at
		RETURNING version
	`, kind, id, string(payload), s.now().Unix()).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("put %s/%s: %w", kind, id, err)
	}

	log.Debug().Str("kind", kind).Str("id", id).Int64("version", version).Msg("Stored document")
	return version, nil
}

// PutIfAbsent writes payload only when (kind, id) is new and reports whether it did.
func (s *Store) PutIfAbsent(ctx context.Context, kind, id string, payload []byte) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO resource_state (kind, id, payload, version, updated_at) VALUES (?, ?, ?, 1, ?)`,
		kind, id, string(payload), s.now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("put %s/%s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("put %s/%s: %w", kind, id, err)
	}
	return n == 1, nil
}

// Delete removes a document and reports whether it existed.
func (s *Store) Delete(ctx context.Context, kind, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM resource_state WHERE kind = ? AND id = ?`, kind, id)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", kind, id, err)
	}
	return n > 0, nil
}

// List returns every document of kind ordered by id.
func (s *Store) List(ctx context.Context, kind string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload, version, updated_at FROM resource_state WHERE kind = ? ORDER BY id`,
		kind,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc := Document{Kind: kind}
		var payload string
		var updated int64
		if err := rows.Scan(&doc.ID, &payload, &doc.Version, &updated); err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		doc.Payload = []byte(payload)
		doc.UpdatedAt = time.Unix(updated, 0)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
