// Package journal holds the per-user journaling aggregates: practice-time
// records, practice logs, notebooks and posts. Each collection is a single
// durable aggregate per user — a mapping from a stable sub-key to a value
// plus a derived summary — and the durable store is always the source of
// truth. An in-process cache (Cache) fronts the practice collections.
package journal

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned for unknown record, notebook or post ids.
var ErrNotFound = errors.New("record not found")

// ErrInvalidRecord wraps client-input validation failures.
var ErrInvalidRecord = errors.New("invalid record")

// Summary is derived state. It is recomputed from the full mapping on every
// mutation and never updated incrementally, so it cannot drift.
type Summary struct {
	TotalRecords int       `json:"total_records"`
	TotalMinutes int       `json:"total_minutes"`
	LastUpdated  time.Time `json:"last_updated,omitzero"`
}

// Aggregate is the single durable object holding all of one user's records
// of one kind.
type Aggregate[V any] struct {
	Records map[string]V `json:"records"`
	Summary Summary      `json:"summary"`
}

func newAggregate[V any]() *Aggregate[V] {
	return &Aggregate[V]{Records: make(map[string]V)}
}

// recompute rebuilds the summary from the current mapping. minutes may be
// nil for collections without a minute dimension.
func (a *Aggregate[V]) recompute(minutes func(V) int, now time.Time) {
	total := 0
	if minutes != nil {
		for _, v := range a.Records {
			total += minutes(v)
		}
	}
	a.Summary = Summary{
		TotalRecords: len(a.Records),
		TotalMinutes: total,
		LastUpdated:  now,
	}
}

func invalidRecord(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, fmt.Sprintf(format, args...))
}
