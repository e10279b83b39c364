package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/discochess/gameweek/internal/codec"
	"github.com/discochess/gameweek/internal/codec/codecs"
	"github.com/discochess/gameweek/internal/engine"
	"github.com/discochess/gameweek/internal/evalcache"
	"github.com/discochess/gameweek/internal/search"
	"github.com/discochess/gameweek/internal/stats"
	"github.com/discochess/gameweek/internal/store"
)

// Compile-time check that Backend implements evalcache.Backend.
var _ evalcache.Backend = (*Backend)(nil)

// Backend serves lookups from the snapshot in a store. It is read-only:
// Set does nothing. Until Load succeeds every lookup misses.
type Backend struct {
	st     store.Store
	cfg    config
	logger *zap.Logger

	mu      sync.RWMutex
	index   Index
	shards  [][][]byte
	entries int

	hits   atomic.Int64
	misses atomic.Int64
}

// NewBackend creates an empty backend reading from st.
func NewBackend(st store.Store, opts ...Option) *Backend {
	cfg := newConfig(opts)
	return &Backend{
		st:     st,
		cfg:    cfg,
		logger: cfg.logger.Named("snapshot"),
	}
}

// Load reads the snapshot index and every shard into memory, replacing
// what was loaded before. A missing snapshot loads as empty.
func (b *Backend) Load(ctx context.Context) (Index, error) {
	data, err := b.st.Get(ctx, IndexKey)
	if errors.Is(err, store.ErrNotFound) {
		b.replace(Index{}, nil, 0)
		return Index{}, nil
	}
	if err != nil {
		return Index{}, fmt.Errorf("reading snapshot index: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, fmt.Errorf("parsing snapshot index: %w", err)
	}
	if idx.Version != Version {
		return Index{}, fmt.Errorf("%w: %d", ErrVersion, idx.Version)
	}
	if idx.Strategy != b.cfg.strategy.Name() {
		return Index{}, fmt.Errorf("%w: written with %q", ErrStrategy, idx.Strategy)
	}
	c, err := codecs.ByName(idx.Compression)
	if err != nil {
		return Index{}, err
	}

	shards := make([][][]byte, idx.Shards)
	var count atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for id := range shards {
		g.Go(func() error {
			raw, err := b.st.Get(gctx, ShardKey(id, c))
			if errors.Is(err, store.ErrNotFound) {
				b.logger.Warn("snapshot shard missing", zap.Int("shard", id))
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading shard %d: %w", id, err)
			}
			plain, err := c.Decode(raw)
			if err != nil {
				return fmt.Errorf("decoding shard %d: %w", id, err)
			}
			shards[id] = search.Lines(plain)
			count.Add(int64(len(shards[id])))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Index{}, err
	}

	b.replace(idx, shards, int(count.Load()))
	b.cfg.stats.SetGauge(stats.MetricSnapshotEntries, count.Load())
	b.logger.Info("snapshot loaded",
		zap.Int("entries", int(count.Load())),
		zap.Int("shards", idx.Shards),
		zap.Time("writtenAt", idx.WrittenAt),
	)
	return idx, nil
}

func (b *Backend) replace(idx Index, shards [][][]byte, entries int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.index = idx
	b.shards = shards
	b.entries = entries
}

// Get finds key in the loaded snapshot.
func (b *Backend) Get(key evalcache.Key) (engine.Evaluation, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.shards) > 0 {
		lines := b.shards[b.cfg.strategy.ShardID(key.Position, len(b.shards))]
		for _, line := range search.Find(lines, key.Position) {
			var e Entry
			if err := json.Unmarshal(line, &e); err != nil {
				continue
			}
			if e.Depth == key.Depth {
				b.hits.Add(1)
				b.cfg.stats.IncCounter(stats.MetricSnapshotHits, 1)
				return e.Evaluation(), true
			}
		}
	}
	b.misses.Add(1)
	return engine.Evaluation{}, false
}

// Set is a no-op; snapshots change only through Save.
func (b *Backend) Set(evalcache.Key, engine.Evaluation) {}

// Stats returns lookup counters and the number of loaded entries.
func (b *Backend) Stats() evalcache.Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return evalcache.Stats{
		Hits:   b.hits.Load(),
		Misses: b.misses.Load(),
		Size:   b.entries,
	}
}

// Entries decodes every loaded entry. Undecodable lines are skipped.
func (b *Backend) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, 0, b.entries)
	for _, lines := range b.shards {
		for _, line := range lines {
			var e Entry
			if err := json.Unmarshal(line, &e); err == nil {
				out = append(out, e)
			}
		}
	}
	return out
}

// Save writes the loaded entries merged with fresh ones, fresh entries
// winning, and then reloads the result.
func (b *Backend) Save(ctx context.Context, c codec.Codec, fresh []Entry) (Index, error) {
	entries := append(b.Entries(), fresh...)
	opts := []Option{
		WithShards(b.cfg.shards),
		WithStrategy(b.cfg.strategy),
		WithClock(b.cfg.now),
		WithStats(b.cfg.stats),
		WithLogger(b.cfg.logger),
	}
	if _, err := Save(ctx, b.st, c, entries, opts...); err != nil {
		return Index{}, err
	}
	return b.Load(ctx)
}

// Close closes the underlying store.
func (b *Backend) Close() error {
	return b.st.Close()
}
