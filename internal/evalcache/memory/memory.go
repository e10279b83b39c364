// Package memory implements an in-memory evaluation cache backend.
package memory

import (
	"sync/atomic"

	"github.com/discochess/gameweek/internal/engine"
	"github.com/discochess/gameweek/internal/evalcache"
	"github.com/discochess/gameweek/internal/evalcache/cachestrategy"
	"github.com/discochess/gameweek/internal/stats"
)

// Compile-time check that Backend implements evalcache.Backend.
var _ evalcache.Backend = (*Backend)(nil)

// Backend is a thread-safe in-memory cache backend.
type Backend struct {
	strategy  cachestrategy.Strategy[evalcache.Key]
	collector stats.Collector

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a new memory backend with the given eviction strategy.
// The collector is optional; if nil, a no-op collector is used.
func New(strategy cachestrategy.Strategy[evalcache.Key], collector stats.Collector) *Backend {
	if collector == nil {
		collector = stats.NewNoop()
	}
	return &Backend{
		strategy:  strategy,
		collector: collector,
	}
}

// Get retrieves an evaluation from the cache.
func (b *Backend) Get(key evalcache.Key) (engine.Evaluation, bool) {
	val, ok := b.strategy.Get(key)
	if ok {
		b.hits.Add(1)
		b.collector.IncCounter(stats.MetricEvalCacheHits, 1)
		return val, true
	}
	b.misses.Add(1)
	b.collector.IncCounter(stats.MetricEvalCacheMisses, 1)
	return engine.Evaluation{}, false
}

// Set stores an evaluation in the cache.
func (b *Backend) Set(key evalcache.Key, eval engine.Evaluation) {
	b.strategy.Add(key, eval)
	b.collector.SetGauge(stats.MetricEvalCacheSize, int64(b.strategy.Len()))
}

// Stats returns current cache statistics.
func (b *Backend) Stats() evalcache.Stats {
	return evalcache.Stats{
		Hits:   b.hits.Load(),
		Misses: b.misses.Load(),
		Size:   b.strategy.Len(),
	}
}

// Each calls fn for every cached evaluation, oldest first. It does not
// count as a lookup.
func (b *Backend) Each(fn func(evalcache.Key, engine.Evaluation)) {
	for _, key := range b.strategy.Keys() {
		if eval, ok := b.strategy.Peek(key); ok {
			fn(key, eval)
		}
	}
}
