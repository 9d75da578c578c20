package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// TypedStore stores one JSON-encoded T per id under a fixed kind.
type TypedStore[T any] struct {
	store *Store
	kind  string
}

// NewTypedStore binds kind on store to T.
func NewTypedStore[T any](store *Store, kind string) *TypedStore[T] {
	return &TypedStore[T]{store: store, kind: kind}
}

// Get decodes the value for id. A missing id yields the zero T and version 0.
func (s *TypedStore[T]) Get(ctx context.Context, id string) (T, int64, error) {
	var value T

	doc, err := s.store.Get(ctx, s.kind, id)
	if err != nil || doc == nil {
		return value, 0, err
	}
	if err := json.Unmarshal(doc.Payload, &value); err != nil {
		return value, 0, fmt.Errorf("decode %s/%s: %w", s.kind, id, err)
	}
	return value, doc.Version, nil
}

// Set replaces the value for id.
func (s *TypedStore[T]) Set(ctx context.Context, id string, value T) error {
	payload, err := s.encode(id, value)
	if err != nil {
		return err
	}
	_, err = s.store.Put(ctx, s.kind, id, payload)
	return err
}

// SetIfAbsent writes value only when id has never been stored and reports whether it did.
func (s *TypedStore[T]) SetIfAbsent(ctx context.Context, id string, value T) (bool, error) {
	payload, err := s.encode(id, value)
	if err != nil {
		return false, err
	}
	return s.store.PutIfAbsent(ctx, s.kind, id, payload)
}

func (s *TypedStore[T]) encode(id string, value T) ([]byte, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s/%s: %w", s.kind, id, err)
	}
	return payload, nil
}
