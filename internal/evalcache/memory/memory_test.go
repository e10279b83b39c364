package memory

import (
	"testing"

	"github.com/discochess/gameweek/internal/engine"
	"github.com/discochess/gameweek/internal/evalcache"
	"github.com/discochess/gameweek/internal/evalcache/cachestrategy/lru"
	"github.com/discochess/gameweek/internal/stats"
	"github.com/discochess/gameweek/internal/stats/logger"
)

func key(n int) evalcache.Key {
	return evalcache.Key{Position: "8/8/8/8/8/8/8/8 w - -", Depth: n}
}

func newBackend(t *testing.T, capacity int) *Backend {
	t.Helper()
	strategy, err := lru.New[evalcache.Key](capacity)
	if err != nil {
		t.Fatalf("lru.New() error = %v", err)
	}
	return New(strategy, nil)
}

func TestBackend_GetSet(t *testing.T) {
	b := newBackend(t, 10)

	if _, ok := b.Get(key(1)); ok {
		t.Error("Get() should return false for missing key")
	}

	want := engine.Evaluation{Kind: engine.Mate, Value: engine.MateScore, MateIn: 2}
	b.Set(key(1), want)
	got, ok := b.Get(key(1))
	if !ok || got != want {
		t.Errorf("Get() = %+v, %v; want %+v", got, ok, want)
	}
}

func TestBackend_Stats(t *testing.T) {
	strategy, err := lru.New[evalcache.Key](10)
	if err != nil {
		t.Fatalf("lru.New() error = %v", err)
	}
	collector := logger.New(nil)
	b := New(strategy, collector)

	b.Set(key(1), engine.Evaluation{Value: 3})
	b.Get(key(1)) // Hit.
	b.Get(key(2)) // Miss.

	s := b.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Size != 1 {
		t.Errorf("Stats() = %+v", s)
	}
	if collector.Total(stats.MetricEvalCacheHits) != 1 || collector.Total(stats.MetricEvalCacheMisses) != 1 {
		t.Error("hits and misses should be reported to the collector")
	}
}

func TestBackend_LRUEviction(t *testing.T) {
	b := newBackend(t, 2)

	b.Set(key(1), engine.Evaluation{Value: 1})
	b.Set(key(2), engine.Evaluation{Value: 2})
	b.Get(key(1)) // 1 is now most recently used.
	b.Set(key(3), engine.Evaluation{Value: 3})

	if _, ok := b.Get(key(2)); ok {
		t.Error("least recently used entry should be evicted")
	}
	if _, ok := b.Get(key(1)); !ok {
		t.Error("recently used entry should survive")
	}
	if b.Stats().Size != 2 {
		t.Errorf("Size = %d, want 2", b.Stats().Size)
	}
}

func TestBackend_Each(t *testing.T) {
	b := newBackend(t, 10)
	b.Set(key(1), engine.Evaluation{Value: 1})
	b.Set(key(2), engine.Evaluation{Value: 2})

	var depths []int
	b.Each(func(k evalcache.Key, e engine.Evaluation) {
		if e.Value != k.Depth {
			t.Errorf("key %+v holds %+v", k, e)
		}
		depths = append(depths, k.Depth)
	})
	if len(depths) != 2 || depths[0] != 1 || depths[1] != 2 {
		t.Errorf("Each() visited %v, want [1 2]", depths)
	}
	if s := b.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Errorf("Each() should not count lookups, Stats() = %+v", s)
	}
}
