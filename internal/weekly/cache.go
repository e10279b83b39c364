// Package weekly fetches and caches each tracked player's games of the
// past week.
package weekly

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/discochess/gameweek/internal/chesscom"
	"github.com/discochess/gameweek/internal/game"
	"github.com/discochess/gameweek/internal/stats"
)

// errNoArchives is returned internally when every archive fetch failed.
var errNoArchives = errors.New("weekly: no archive could be read")

// Source is the remote game source.
type Source interface {
	Archives(ctx context.Context, username string) ([]string, error)
	Games(ctx context.Context, archiveURL string) ([]chesscom.Game, error)
}

// entry is one player's cached week.
type entry struct {
	timeClass string
	games     []*game.Record
	fetchedAt time.Time
}

func (e *entry) orphan() {
	for _, rec := range e.games {
		rec.Orphan()
	}
}

// Cache holds the most recent week of games per player.
//
// An entry is served while its time class matches and it is younger than
// the TTL. Evicted, invalidated or replaced records are orphaned so late
// writes from an in-flight analysis job are dropped.
type Cache struct {
	source Source
	opts   options
	logger *zap.Logger

	// mu serializes entry replacement so record reuse sees a stable
	// previous entry.
	mu      sync.Mutex
	entries *lru.Cache[string, *entry]
	group   singleflight.Group
}

// New creates a Cache reading from source.
func New(source Source, opts ...Option) (*Cache, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}

	entries, err := lru.NewWithEvict(o.capacity, func(_ string, e *entry) {
		e.orphan()
	})
	if err != nil {
		return nil, fmt.Errorf("creating player cache: %w", err)
	}

	return &Cache{
		source:  source,
		opts:    o,
		logger:  o.logger.Named("cache"),
		entries: entries,
	}, nil
}

// FetchWeeklyGames returns player's games of the past week in timeClass,
// most recent first.
//
// A valid cached entry is returned as is. Otherwise the most recent
// archives are fetched and the entry replaced. Failures never surface:
// unreadable archives are skipped, and if nothing could be read the result
// is empty and nothing is cached.
func (c *Cache) FetchWeeklyGames(ctx context.Context, player, timeClass string) []*game.Record {
	key := strings.ToLower(player)

	if games, ok := c.valid(key, timeClass); ok {
		c.opts.stats.IncCounter(stats.MetricWeeklyHits, 1)
		return games
	}

	v, err, shared := c.group.Do(key+"/"+timeClass, func() (any, error) {
		if games, ok := c.valid(key, timeClass); ok {
			return games, nil
		}
		return c.fetch(ctx, key, timeClass)
	})
	if err != nil {
		c.logger.Warn("weekly fetch failed",
			zap.String("player", key),
			zap.String("time_class", timeClass),
			zap.Error(err),
		)
		return []*game.Record{}
	}
	if shared {
		c.logger.Debug("joined in-flight fetch", zap.String("player", key))
	}
	return v.([]*game.Record)
}

// Peek returns player's cached games in timeClass regardless of age,
// without fetching or refreshing recency.
func (c *Cache) Peek(player, timeClass string) ([]*game.Record, bool) {
	e, ok := c.entries.Peek(strings.ToLower(player))
	if !ok || e.timeClass != timeClass {
		return nil, false
	}
	return e.games, true
}

// Invalidate drops player's entry and orphans its records.
func (c *Cache) Invalidate(player string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(strings.ToLower(player))
	c.opts.stats.SetGauge(stats.MetricWeeklyPlayers, int64(c.Len()))
}

// Clear drops every entry, as on a time-class change.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.opts.stats.SetGauge(stats.MetricWeeklyPlayers, 0)
}

// Len returns the number of cached players.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) valid(key, timeClass string) ([]*game.Record, bool) {
	e, ok := c.entries.Get(key)
	if !ok || e.timeClass != timeClass {
		return nil, false
	}
	if c.opts.now().Sub(e.fetchedAt) >= c.opts.ttl {
		return nil, false
	}
	return e.games, true
}

func (c *Cache) fetch(ctx context.Context, player, timeClass string) ([]*game.Record, error) {
	c.opts.stats.IncCounter(stats.MetricWeeklyFetches, 1)

	archives, err := c.source.Archives(ctx, player)
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}
	if len(archives) > c.opts.lookback {
		archives = archives[len(archives)-c.opts.lookback:]
	}

	listings, err := c.fetchArchives(ctx, archives)
	if err != nil {
		return nil, err
	}

	now := c.opts.now()
	cutoff := now.Add(-c.opts.window)

	type candidate struct {
		info     game.Info
		accuracy *float64
	}
	seen := make(map[string]bool)
	var found []candidate
	for _, games := range listings {
		for _, g := range games {
			if g.TimeClass != timeClass || seen[g.URL] {
				continue
			}
			info, acc, ok := g.Info(player)
			if !ok || info.EndTime.IsZero() || info.EndTime.Before(cutoff) {
				continue
			}
			seen[g.URL] = true
			found = append(found, candidate{info: info, accuracy: acc})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].info.EndTime.After(found[j].info.EndTime)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	known := make(map[string]*game.Record)
	prev, hadPrev := c.entries.Peek(player)
	if hadPrev && prev.timeClass == timeClass {
		for _, rec := range prev.games {
			known[rec.ID] = rec
		}
	}

	records := make([]*game.Record, 0, len(found))
	for _, cand := range found {
		if rec, ok := known[cand.info.ID]; ok {
			delete(known, cand.info.ID)
			if cand.accuracy != nil {
				rec.Complete(*cand.accuracy)
			}
			records = append(records, rec)
			continue
		}
		records = append(records, game.NewRecord(cand.info, cand.accuracy))
	}

	// Records that did not carry over are gone.
	if hadPrev && prev.timeClass != timeClass {
		prev.orphan()
	}
	for _, rec := range known {
		rec.Orphan()
	}

	c.entries.Add(player, &entry{timeClass: timeClass, games: records, fetchedAt: now})
	c.opts.stats.SetGauge(stats.MetricWeeklyPlayers, int64(c.Len()))
	c.opts.stats.IncCounter(stats.MetricGamesFetched, int64(len(records)))
	c.logger.Info("fetched weekly games",
		zap.String("player", player),
		zap.String("time_class", timeClass),
		zap.Int("archives", len(archives)),
		zap.Int("games", len(records)),
	)
	return records, nil
}

// fetchArchives reads archives concurrently, newest first. Archives that
// fail are logged and skipped; it is an error only when all of them fail.
func (c *Cache) fetchArchives(ctx context.Context, archives []string) ([][]chesscom.Game, error) {
	listings := make([][]chesscom.Game, len(archives))
	failed := make([]bool, len(archives))

	var g errgroup.Group
	for i, archive := range archives {
		// Newest archive first.
		slot := len(archives) - 1 - i
		g.Go(func() error {
			games, err := c.source.Games(ctx, archive)
			if err != nil {
				failed[slot] = true
				c.opts.stats.IncCounter(stats.MetricArchiveFailures, 1)
				c.logger.Warn("skipping archive", zap.String("archive", archive), zap.Error(err))
				return nil
			}
			listings[slot] = games
			return nil
		})
	}
	_ = g.Wait()

	if len(archives) == 0 {
		return nil, nil
	}
	for _, f := range failed {
		if !f {
			return listings, nil
		}
	}
	return nil, errNoArchives
}
