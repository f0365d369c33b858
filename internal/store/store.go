package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Collection names the two persisted record sets.
type Collection string

const (
	Passes        Collection = "passes"
	Notifications Collection = "notifications"
)

var ErrUnknownCollection = errors.New("unknown collection")

// Store is the whole-collection persistence contract. There is no partial
// update: every mutation is read-all, transform in memory, replace-all.
// Last writer wins; safe only under a single active writer.
type Store interface {
	// ReadAll returns the serialized collection as a JSON array.
	// A collection that was never written reads as an empty array.
	ReadAll(ctx context.Context, col Collection) ([]byte, error)
	// ReplaceAll overwrites the collection with the given JSON array.
	ReplaceAll(ctx context.Context, col Collection, data []byte) error
}

// Load decodes a collection into typed records. Absent collections decode to
// a nil slice; corrupt data surfaces the decode error to the caller.
func Load[T any](ctx context.Context, s Store, col Collection) ([]T, error) {
	raw, err := s.ReadAll(ctx, col)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Save encodes typed records and replaces the collection. A nil slice is
// written as an empty array so readers never see JSON null.
func Save[T any](ctx context.Context, s Store, col Collection, records []T) error {
	if records == nil {
		records = []T{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.ReplaceAll(ctx, col, raw)
}
