// Package cache memoises case store lookups per (type, from) pair.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/heartmarshall/casetagger/internal/domain"
)

type caseStore interface {
	InsertOrIncrement(ctx context.Context, c domain.Case) error
	FetchAllOutcomes(ctx context.Context, candidates domain.Cases) (domain.Cases, error)
	Reset(ctx context.Context) error
}

// Store wraps a case store with an LRU cache of outcome lists.
type Store struct {
	inner  caseStore
	lru    *lru.Cache[domain.FromKey, domain.Cases]
	hits   atomic.Int64
	misses atomic.Int64
}

// Stats counts cache lookups since the store was created.
type Stats struct {
	Hits   int64
	Misses int64
}

// New wraps inner with a cache holding up to size (type, from) pairs.
func New(inner caseStore, size int) (*Store, error) {
	c, err := lru.New[domain.FromKey, domain.Cases](size)
	if err != nil {
		return nil, fmt.Errorf("create outcome cache: %w", err)
	}
	return &Store{inner: inner, lru: c}, nil
}

// InsertOrIncrement writes through and drops the cached outcomes of c.
func (s *Store) InsertOrIncrement(ctx context.Context, c domain.Case) error {
	if err := s.inner.InsertOrIncrement(ctx, c); err != nil {
		return err
	}
	s.lru.Remove(c.FromKey())
	return nil
}

// FetchAllOutcomes serves each candidate from the cache, asking the wrapped
// store only for pairs it has not seen. Results match the wrapped store's.
func (s *Store) FetchAllOutcomes(ctx context.Context, candidates domain.Cases) (domain.Cases, error) {
	var out domain.Cases
	for _, c := range candidates {
		key := c.FromKey()
		outcomes, ok := s.lru.Get(key)
		if ok {
			s.hits.Add(1)
		} else {
			s.misses.Add(1)
			var err error
			outcomes, err = s.inner.FetchAllOutcomes(ctx, domain.Cases{c})
			if err != nil {
				return nil, err
			}
			s.lru.Add(key, outcomes)
		}
		out = append(out, outcomes...)
	}
	return out, nil
}

// Reset resets the wrapped store and purges the cache.
func (s *Store) Reset(ctx context.Context) error {
	s.lru.Purge()
	return s.inner.Reset(ctx)
}

// Purge drops every cached entry.
func (s *Store) Purge() { s.lru.Purge() }

// Len returns the number of cached (type, from) pairs.
func (s *Store) Len() int { return s.lru.Len() }

// Stats returns the hit and miss counts.
func (s *Store) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}
