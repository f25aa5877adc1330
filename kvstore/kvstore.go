// Package kvstore defines the durable key-value store contract used by the
// identity and journaling subsystems. The store is the source of truth;
// anything cached in front of it is soft, rebuildable state.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist or its TTL has elapsed.
var ErrNotFound = errors.New("key not found")

// ErrUnavailable is returned when the store could not be reached within the
// operation deadline. Callers may retry the whole request; the operation was
// not necessarily applied.
var ErrUnavailable = errors.New("store unavailable")

// Store is a durable key-value store with optional per-key TTL. The store
// itself honors TTLs: an expired entry is never returned, independent of any
// application-level expiry checks layered on top.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key. A zero ttl means the entry never expires.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns all keys beginning with prefix, unordered.
	List(ctx context.Context, prefix string) ([]string, error)
}

// IsUnavailable reports whether err should be treated as a transient store
// failure, including operation deadline expiry.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
