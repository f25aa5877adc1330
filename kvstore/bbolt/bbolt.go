// Package bbolt provides a BBolt-backed kvstore.Store.
package bbolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/woodshedapp/woodshed/kvstore"
)

const sweepInterval = 5 * time.Minute

var bucketName = []byte("kv")

// envelope wraps a stored value with its expiry instant. BBolt has no native
// TTL support, so expiry is checked on read and enforced fully by a
// background sweep.
type envelope struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (e envelope) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Store implements kvstore.Store backed by a BBolt database.
type Store struct {
	db       *bbolt.DB
	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ kvstore.Store = (*Store)(nil)

// NewStore returns a Store backed by the given BBolt database and starts the
// expiry sweeper.
func NewStore(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating kv bucket: %w", err)
	}
	s := &Store{db: db, stopCh: make(chan struct{})}
	go s.sweepLoop()
	return s, nil
}

// NewStoreFromFile opens a BBolt database at the given path and returns a new Store.
func NewStoreFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewStore(db)
}

// Close stops the sweeper and closes the underlying BBolt database.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketName).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%s: %w", key, kvstore.ErrNotFound)
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		if env.expired(time.Now()) {
			return fmt.Errorf("%s: %w", key, kvstore.ErrNotFound)
		}
		value = append([]byte(nil), env.Value...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := envelope{Value: value}
	if ttl > 0 {
		env.ExpiresAt = time.Now().Add(ttl)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), data)
	})
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	p := []byte(prefix)
	now := time.Now()
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var env envelope
			if err := json.Unmarshal(v, &env); err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			if env.expired(now) {
				continue
			}
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep removes entries whose TTL has elapsed.
func (s *Store) sweep() {
	now := time.Now()
	_ = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var env envelope
			if err := json.Unmarshal(v, &env); err != nil {
				continue
			}
			if env.expired(now) {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
