package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/woodshedapp/woodshed/kvstore"
)

// aggregateStore persists one aggregate kind, keyed by user id. Aggregates
// never expire; only the owning user's id ever reaches the key.
type aggregateStore[V any] struct {
	kv     kvstore.Store
	prefix string
}

func (st aggregateStore[V]) key(userID string) string {
	return st.prefix + userID
}

// load returns the user's aggregate, or kvstore.ErrNotFound when the user
// has never written one.
func (st aggregateStore[V]) load(ctx context.Context, userID string) (*Aggregate[V], error) {
	data, err := st.kv.Get(ctx, st.key(userID))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading aggregate: %w", err)
	}
	var agg Aggregate[V]
	if err := json.Unmarshal(data, &agg); err != nil {
		return nil, fmt.Errorf("decoding aggregate: %w", err)
	}
	if agg.Records == nil {
		agg.Records = make(map[string]V)
	}
	return &agg, nil
}

// loadOrCreate is the read half of every read-modify-write cycle.
func (st aggregateStore[V]) loadOrCreate(ctx context.Context, userID string) (*Aggregate[V], error) {
	agg, err := st.load(ctx, userID)
	if errors.Is(err, kvstore.ErrNotFound) {
		return newAggregate[V](), nil
	}
	return agg, err
}

func (st aggregateStore[V]) save(ctx context.Context, userID string, agg *Aggregate[V]) error {
	data, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("encoding aggregate: %w", err)
	}
	if err := st.kv.Put(ctx, st.key(userID), data, 0); err != nil {
		return fmt.Errorf("saving aggregate: %w", err)
	}
	return nil
}
