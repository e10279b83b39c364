// Package snapshot persists memoized evaluations so a later run can reuse
// them without asking the engine.
//
// A snapshot is a set of shard objects plus an index. Each shard holds
// JSON Lines sorted by position and depth, compressed with the codec named
// in the index. The index is written last.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/discochess/gameweek/internal/codec"
	"github.com/discochess/gameweek/internal/engine"
	"github.com/discochess/gameweek/internal/evalcache"
	"github.com/discochess/gameweek/internal/fen"
	"github.com/discochess/gameweek/internal/shard"
	"github.com/discochess/gameweek/internal/shard/hashshard"
	"github.com/discochess/gameweek/internal/stats"
	"github.com/discochess/gameweek/internal/store"
)

const (
	// Version is the index format version.
	Version = 1

	// IndexKey is the store key of the index.
	IndexKey = "index.json"

	// DefaultShards is the shard count used by Save.
	DefaultShards = 16
)

var (
	// ErrVersion indicates an index written by an incompatible version.
	ErrVersion = errors.New("snapshot: unsupported index version")

	// ErrStrategy indicates an index written with another shard strategy.
	ErrStrategy = errors.New("snapshot: shard strategy mismatch")
)

// Entry is one persisted evaluation. Position must stay the first field;
// lookups read it without decoding the line.
type Entry struct {
	Position string `json:"position"`
	Depth    int    `json:"depth"`
	Kind     string `json:"kind"`
	Value    int    `json:"value"`
	MateIn   int    `json:"mate_in,omitempty"`
	BestMove string `json:"best_move,omitempty"`
}

// NewEntry converts a cached evaluation.
func NewEntry(key evalcache.Key, eval engine.Evaluation) Entry {
	return Entry{
		Position: key.Position,
		Depth:    key.Depth,
		Kind:     eval.Kind.String(),
		Value:    eval.Value,
		MateIn:   eval.MateIn,
		BestMove: eval.BestMove,
	}
}

// Key returns the cache key of e.
func (e Entry) Key() evalcache.Key {
	return evalcache.Key{Position: e.Position, Depth: e.Depth}
}

// Evaluation returns the evaluation stored in e. The search depth is the
// requested depth.
func (e Entry) Evaluation() engine.Evaluation {
	kind := engine.Centipawn
	if e.Kind == engine.Mate.String() {
		kind = engine.Mate
	}
	return engine.Evaluation{
		Kind:     kind,
		Value:    e.Value,
		Depth:    e.Depth,
		MateIn:   e.MateIn,
		BestMove: e.BestMove,
	}
}

// Index describes a written snapshot.
type Index struct {
	Version     int       `json:"version"`
	Strategy    string    `json:"strategy"`
	Shards      int       `json:"shards"`
	Compression string    `json:"compression"`
	Entries     int       `json:"entries"`
	WrittenAt   time.Time `json:"written_at"`
}

// Option configures Save and Backend.
type Option func(*config)

type config struct {
	shards   int
	strategy shard.Strategy
	now      func() time.Time
	stats    stats.Collector
	logger   *zap.Logger
}

func newConfig(opts []Option) config {
	cfg := config{
		shards:   DefaultShards,
		strategy: hashshard.New(),
		now:      time.Now,
		stats:    stats.NewNoop(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithShards sets the number of shards Save writes.
func WithShards(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.shards = n
		}
	}
}

// WithStrategy sets the shard strategy. Readers must use the strategy the
// snapshot was written with.
func WithStrategy(s shard.Strategy) Option {
	return func(c *config) { c.strategy = s }
}

// WithClock replaces time.Now for the index timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithStats sets the stats collector.
func WithStats(s stats.Collector) Option {
	return func(c *config) { c.stats = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// ShardKey returns the store key of shard id.
func ShardKey(id int, c codec.Codec) string {
	key := fmt.Sprintf("shard-%04d.jsonl", id)
	if ext := c.Extension(); ext != "" {
		key += "." + ext
	}
	return key
}

// Save writes entries to st as a new snapshot and returns its index. Later
// entries replace earlier ones with the same key. Entries whose position is
// not a FEN are dropped.
func Save(ctx context.Context, st store.Store, c codec.Codec, entries []Entry, opts ...Option) (Index, error) {
	cfg := newConfig(opts)
	entries = dedupe(entries)

	groups := make([][]Entry, cfg.shards)
	for _, e := range entries {
		id := cfg.strategy.ShardID(e.Position, cfg.shards)
		groups[id] = append(groups[id], e)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for id, group := range groups {
		g.Go(func() error {
			return writeShard(gctx, st, c, id, group)
		})
	}
	if err := g.Wait(); err != nil {
		return Index{}, err
	}

	idx := Index{
		Version:     Version,
		Strategy:    cfg.strategy.Name(),
		Shards:      cfg.shards,
		Compression: c.Name(),
		Entries:     len(entries),
		WrittenAt:   cfg.now().UTC(),
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return Index{}, fmt.Errorf("marshaling snapshot index: %w", err)
	}
	if err := st.Put(ctx, IndexKey, data); err != nil {
		return Index{}, fmt.Errorf("writing snapshot index: %w", err)
	}

	cfg.stats.SetGauge(stats.MetricSnapshotEntries, int64(idx.Entries))
	cfg.logger.Named("snapshot").Info("snapshot saved",
		zap.Int("entries", idx.Entries),
		zap.Int("shards", idx.Shards),
		zap.String("compression", idx.Compression),
	)
	return idx, nil
}

// writeShard sorts and writes a single shard. Empty shards are written too
// so a smaller snapshot replaces every shard of a larger one.
func writeShard(ctx context.Context, st store.Store, c codec.Codec, id int, entries []Entry) error {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Position != entries[j].Position {
			return entries[i].Position < entries[j].Position
		}
		return entries[i].Depth < entries[j].Depth
	})

	var buf bytes.Buffer
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", e.Position, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	data, err := c.Encode(buf.Bytes())
	if err != nil {
		return fmt.Errorf("encoding shard %d: %w", id, err)
	}
	if err := st.Put(ctx, ShardKey(id, c), data); err != nil {
		return fmt.Errorf("writing shard %d: %w", id, err)
	}
	return nil
}

func dedupe(entries []Entry) []Entry {
	pos := make(map[evalcache.Key]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		norm, err := fen.Normalize(e.Position)
		if err != nil {
			continue
		}
		e.Position = norm
		if i, ok := pos[e.Key()]; ok {
			out[i] = e
			continue
		}
		pos[e.Key()] = len(out)
		out = append(out, e)
	}
	return out
}
