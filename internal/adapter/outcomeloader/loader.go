// Package outcomeloader batches outcome lookups by (type, from) pair so a
// store answers a whole candidate list in a few queries.
package outcomeloader

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/heartmarshall/casetagger/internal/domain"
)

const (
	// MaxBatch bounds the keys sent to one BatchFunc call. Each key binds two
	// query parameters.
	MaxBatch = 200
	wait     = 2 * time.Millisecond
)

// BatchFunc loads the outcomes of every key in one round trip. Keys with no
// stored outcomes may be missing from the result.
type BatchFunc func(ctx context.Context, keys []domain.FromKey) (map[domain.FromKey]domain.Cases, error)

// Fetch returns, for every candidate in order, the outcomes stored under its
// (type, from) pair. Distinct pairs are loaded in batches of at most
// MaxBatch keys. A repeated candidate contributes its outcomes again.
func Fetch(ctx context.Context, candidates domain.Cases, fn BatchFunc) (domain.Cases, error) {
	keys := candidates.FromKeys()
	if len(keys) == 0 {
		return nil, nil
	}

	loader := dataloader.NewBatchedLoader(
		batchFn(fn),
		dataloader.WithBatchCapacity[domain.FromKey, domain.Cases](min(len(keys), MaxBatch)),
		dataloader.WithWait[domain.FromKey, domain.Cases](wait),
	)
	values, errs := loader.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	byKey := make(map[domain.FromKey]domain.Cases, len(keys))
	for i, k := range keys {
		byKey[k] = values[i]
	}

	var out domain.Cases
	for _, c := range candidates {
		out = append(out, byKey[c.FromKey()]...)
	}
	return out, nil
}

func batchFn(fn BatchFunc) dataloader.BatchFunc[domain.FromKey, domain.Cases] {
	return func(ctx context.Context, keys []domain.FromKey) []*dataloader.Result[domain.Cases] {
		grouped, err := fn(ctx, keys)
		results := make([]*dataloader.Result[domain.Cases], len(keys))
		for i, k := range keys {
			if err != nil {
				results[i] = &dataloader.Result[domain.Cases]{Error: err}
				continue
			}
			results[i] = &dataloader.Result[domain.Cases]{Data: grouped[k]}
		}
		return results
	}
}

// Group splits rows by (type, from) pair, keeping row order within a pair.
func Group(rows domain.Cases) map[domain.FromKey]domain.Cases {
	grouped := make(map[domain.FromKey]domain.Cases)
	for _, c := range rows {
		k := c.FromKey()
		grouped[k] = append(grouped[k], c)
	}
	return grouped
}
