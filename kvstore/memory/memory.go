// Package memory provides a thread-safe in-memory implementation of
// kvstore.Store. Suitable for testing, demos, and single-process use cases.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/woodshedapp/woodshed/kvstore"
)

// Store is a thread-safe in-memory kvstore.Store. Entries with a TTL are
// expired lazily on access.
type Store struct {
	mu   sync.RWMutex
	data map[string]entry
}

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

var _ kvstore.Store = (*Store)(nil)

// NewStore creates a new empty in-memory Store.
func NewStore() *Store {
	return &Store{data: make(map[string]entry)}
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return nil, kvstore.ErrNotFound
	}
	if e.expired(time.Now()) {
		delete(s.data, key)
		return nil, kvstore.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: expiresAt,
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var keys []string
	for k, e := range s.data {
		if e.expired(now) {
			delete(s.data, k)
			continue
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	now := time.Now()
	for _, e := range s.data {
		if !e.expired(now) {
			n++
		}
	}
	return n
}
