// Package kv is the byte store behind the scheduler's kv builtins. Keys are
// strings; List walks keys sharing a prefix in lexicographic order.
//
// Memory keeps everything in a map and suits tests and one-off runs. Badger
// persists to disk with BadgerDB, or keeps a real badger engine in memory.
package kv

import (
	"context"
	"errors"
	"iter"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   string
	Value []byte
}

// Store is a key-value store safe for concurrent use.
type Store interface {
	// Get returns ErrNotFound if key is not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error

	// List yields entries whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) iter.Seq2[Entry, error]

	Close() error
}
