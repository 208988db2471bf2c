// Package kv defines the key-value store abstraction the order engine
// runs on, plus an in-memory implementation. Backends must preserve
// per-key list insertion order; no ordering is promised across keys.
package kv

import (
	"context"
	"errors"
)

// Sentinel errors for the kv layer. Callers should match with errors.Is().
var (
	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// Store is the minimal key-value contract shared by all backends.
//
// Two key spaces coexist: scalar keys written with Set/Get and list keys
// written with Append/List. Keys enumerates both. A key that has never
// been written is absent, not an error.
type Store interface {
	// Set writes a scalar value, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Get reads a scalar value. The second return is false when the key
	// is absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Append adds values to the end of the list at key, creating the
	// list if needed. Insertion order within a key is preserved.
	Append(ctx context.Context, key string, values ...string) error

	// List returns the full list at key in insertion order; an empty
	// slice if the key is absent.
	List(ctx context.Context, key string) ([]string, error)

	// Delete removes a key (scalar or list). Deleting an absent key is
	// a no-op.
	Delete(ctx context.Context, key string) error

	// Keys returns every key matching the glob pattern. Only the '*'
	// wildcard is required; result order is unspecified.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Close releases resources held by the store.
	Close() error
}
