package journal

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/woodshedapp/woodshed/internal/util"
	"github.com/woodshedapp/woodshed/kvstore"
)

// Cache is the in-process per-user cache over one aggregate kind. It is
// constructed once per process and threaded through dependency injection;
// it starts empty, is populated opportunistically and is never persisted,
// so it must stay correct even if it vanishes between any two requests.
//
// A user's entry is in one of two states: absent (GetAll must consult the
// durable store) or hydrated (reads are served locally, writes still go
// through to the store). GetAll is the only code path that creates an
// entry — a write against a cold cache must not seed a partial one.
//
// Concurrent first reads for the same user may each hydrate from the
// durable store. The duplicate fetches are idempotent, merely wasteful, and
// deliberately left unguarded.
type Cache[V any] struct {
	store   aggregateStore[V]
	less    func(a, b V) bool
	minutes func(V) int
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]map[string]V
}

func newCache[V any](kv kvstore.Store, prefix string, less func(a, b V) bool, minutes func(V) int) *Cache[V] {
	return &Cache[V]{
		store:   aggregateStore[V]{kv: kv, prefix: prefix},
		less:    less,
		minutes: minutes,
		now:     util.Now,
		entries: make(map[string]map[string]V),
	}
}

// GetAll returns the user's records sorted, hydrating the process-local
// entry from the durable aggregate on first use. A missing durable
// aggregate yields an empty view and no cache entry, so every subsequent
// call re-attempts the fetch.
func (c *Cache[V]) GetAll(ctx context.Context, userID string) ([]V, Summary, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	if ok {
		view := c.sortedView(entry)
		summary := c.summarize(entry)
		c.mu.RUnlock()
		return view, summary, nil
	}
	c.mu.RUnlock()

	agg, err := c.store.load(ctx, userID)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return []V{}, Summary{}, nil
		}
		return nil, Summary{}, err
	}

	hydrated := make(map[string]V, len(agg.Records))
	for k, v := range agg.Records {
		hydrated[k] = v
	}
	// Snapshot the view before publishing: once the map is in c.entries a
	// concurrent writer may mutate it under the lock.
	view := c.sortedView(hydrated)
	c.mu.Lock()
	c.entries[userID] = hydrated
	c.mu.Unlock()

	return view, agg.Summary, nil
}

// Upsert writes value through to the durable aggregate (read-modify-write
// with a full summary recompute) and updates the process-local entry only
// if one already exists.
func (c *Cache[V]) Upsert(ctx context.Context, userID, key string, value V) error {
	agg, err := c.store.loadOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	agg.Records[key] = value
	agg.recompute(c.minutes, c.now())
	if err := c.store.save(ctx, userID, agg); err != nil {
		return err
	}

	c.mu.Lock()
	if entry, ok := c.entries[userID]; ok {
		entry[key] = value
	}
	c.mu.Unlock()
	return nil
}

// Delete removes key from the durable aggregate and, if a process-local
// entry exists, from there too. Unknown keys return ErrNotFound.
func (c *Cache[V]) Delete(ctx context.Context, userID, key string) error {
	agg, err := c.store.load(ctx, userID)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if _, ok := agg.Records[key]; !ok {
		return ErrNotFound
	}
	delete(agg.Records, key)
	agg.recompute(c.minutes, c.now())
	if err := c.store.save(ctx, userID, agg); err != nil {
		return err
	}

	c.mu.Lock()
	if entry, ok := c.entries[userID]; ok {
		delete(entry, key)
	}
	c.mu.Unlock()
	return nil
}

// Invalidate drops the process-local entry unconditionally. The next
// GetAll rehydrates from the durable store.
func (c *Cache[V]) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// Summary recomputes the summary for the user's current view. Hydrated
// entries are summarized locally; otherwise the durable aggregate's stored
// summary is returned.
func (c *Cache[V]) Summary(ctx context.Context, userID string) (Summary, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	if ok {
		s := c.summarize(entry)
		c.mu.RUnlock()
		return s, nil
	}
	c.mu.RUnlock()

	agg, err := c.store.load(ctx, userID)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return Summary{}, nil
		}
		return Summary{}, err
	}
	return agg.Summary, nil
}

func (c *Cache[V]) sortedView(entry map[string]V) []V {
	view := make([]V, 0, len(entry))
	for _, v := range entry {
		view = append(view, v)
	}
	sort.Slice(view, func(i, j int) bool { return c.less(view[i], view[j]) })
	return view
}

func (c *Cache[V]) summarize(entry map[string]V) Summary {
	total := 0
	if c.minutes != nil {
		for _, v := range entry {
			total += c.minutes(v)
		}
	}
	return Summary{TotalRecords: len(entry), TotalMinutes: total}
}
