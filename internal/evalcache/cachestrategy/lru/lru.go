// Package lru implements an LRU cache eviction strategy.
package lru

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/discochess/gameweek/internal/engine"
	"github.com/discochess/gameweek/internal/evalcache/cachestrategy"
)

// Compile-time check that Strategy implements cachestrategy.Strategy.
var _ cachestrategy.Strategy[string] = (*Strategy[string])(nil)

// Strategy implements LRU eviction.
type Strategy[K comparable] struct {
	cache *lru.Cache[K, engine.Evaluation]
}

// New creates a new LRU strategy with the given capacity.
func New[K comparable](capacity int) (*Strategy[K], error) {
	c, err := lru.New[K, engine.Evaluation](capacity)
	if err != nil {
		return nil, err
	}
	return &Strategy[K]{cache: c}, nil
}

// Get retrieves a value by key and marks it recently used.
func (s *Strategy[K]) Get(key K) (engine.Evaluation, bool) {
	return s.cache.Get(key)
}

// Add adds a value to the cache, reporting whether an entry was evicted.
func (s *Strategy[K]) Add(key K, value engine.Evaluation) bool {
	return s.cache.Add(key, value)
}

// Len returns the number of items in the cache.
func (s *Strategy[K]) Len() int {
	return s.cache.Len()
}

// Keys returns the cached keys from oldest to newest.
func (s *Strategy[K]) Keys() []K {
	return s.cache.Keys()
}

// Peek returns a value without marking it recently used.
func (s *Strategy[K]) Peek(key K) (engine.Evaluation, bool) {
	return s.cache.Peek(key)
}
