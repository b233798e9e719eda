// Package store is the persistence contract of the booking service.
//
// Values live in a flat key space behind KV. The concurrency primitives the
// rest of the service relies on are KV.SetNX, KV.ReplaceIf and KV.DeleteIf,
// which every backend implements as single conditional writes.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key holds no value.
	ErrNotFound = errors.New("store: not found")
	// ErrCorruptRecord is returned when a stored value does not match the
	// schema expected for its key.
	ErrCorruptRecord = errors.New("store: corrupt record")
)

// KV is the raw key-value backend.
type KV interface {
	// SetNX stores value only if key is absent. It reports whether the write
	// happened.
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	// Set stores value unconditionally.
	Set(ctx context.Context, key string, value []byte) error
	// Replace stores value only if key is present.
	Replace(ctx context.Context, key string, value []byte) (bool, error)
	// ReplaceIf stores value only if key currently holds expected.
	ReplaceIf(ctx context.Context, key string, expected, value []byte) (bool, error)
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete reports whether something was removed.
	Delete(ctx context.Context, key string) (bool, error)
	// DeleteIf removes key only if it currently holds expected.
	DeleteIf(ctx context.Context, key string, expected []byte) (bool, error)
	// Scan returns every key starting with prefix. It is O(keys) and not
	// atomic with respect to concurrent writes.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}
