// Package gameweek tracks chess players' games of the past week and finds
// each player's most and least accurate game.
//
// Games come from the chess.com public API. Games without a site-supplied
// accuracy are replayed and scored with a UCI engine, one position at a
// time, by a single background worker.
//
// Example usage:
//
//	proc, err := engine.StartProcess("stockfish")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eng := engine.New(proc)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	t, err := gameweek.New(gameweek.WithEvaluator(eng))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
//	go t.Run(ctx)
//	t.AddPlayer(ctx, "Hikaru")
//	t.WaitIdle(ctx)
//
//	week, _ := t.Weekly(ctx, "hikaru")
//	fmt.Println(week.Best.Badge(), week.Worst.Badge())
package gameweek

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/discochess/gameweek/internal/codec"
	"github.com/discochess/gameweek/internal/codec/codecs"
	"github.com/discochess/gameweek/internal/engine"
	"github.com/discochess/gameweek/internal/evalcache"
	"github.com/discochess/gameweek/internal/evalcache/cachestrategy/lru"
	"github.com/discochess/gameweek/internal/evalcache/memory"
	"github.com/discochess/gameweek/internal/evalcache/snapshot"
	"github.com/discochess/gameweek/internal/game"
	"github.com/discochess/gameweek/internal/ratings"
	"github.com/discochess/gameweek/internal/report"
	"github.com/discochess/gameweek/internal/scheduler"
	"github.com/discochess/gameweek/internal/weekly"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrClosed indicates the tracker has been closed.
	ErrClosed = errors.New("gameweek: tracker closed")

	// ErrNoEvaluator indicates no evaluator was provided.
	ErrNoEvaluator = errors.New("gameweek: no evaluator provided")

	// ErrInvalidPlayer indicates an empty or malformed username.
	ErrInvalidPlayer = errors.New("gameweek: invalid player name")

	// ErrUnknownPlayer indicates the player is not tracked.
	ErrUnknownPlayer = errors.New("gameweek: player not tracked")

	// ErrNoReportStore indicates publishing without WithReportStore.
	ErrNoReportStore = errors.New("gameweek: no report store configured")

	// ErrNoSnapshot indicates a snapshot operation without
	// WithEvalSnapshotStore.
	ErrNoSnapshot = errors.New("gameweek: no evaluation snapshot configured")
)

// Tracker owns the weekly game cache and the analysis worker for a set of
// players. A Tracker is safe for concurrent use; Run must be called once.
type Tracker struct {
	source    Source
	games     *weekly.Cache
	sched     *scheduler.Scheduler
	evalCache *evalcache.Cache
	memo      *memory.Backend
	snapshot  *snapshot.Backend
	snapCodec codec.Codec
	publisher *report.Publisher
	opts      options
	logger    *zap.Logger
	closed    atomic.Bool

	mu        sync.RWMutex
	players   map[string]Player
	order     []string
	timeClass string
	cycle     string
}

// New creates a Tracker with the given options. WithEvaluator is required.
func New(opts ...Option) (*Tracker, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if cfg.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	if cfg.source == nil {
		cfg.source = cfg.defaultSource()
	}

	t := &Tracker{
		source:    cfg.source,
		opts:      cfg,
		logger:    cfg.logger.Named("gameweek"),
		players:   make(map[string]Player),
		timeClass: cfg.timeClass,
	}

	var eval scheduler.Evaluator = cfg.evaluator
	if cfg.evalCacheSize > 0 {
		strategy, err := lru.New[evalcache.Key](cfg.evalCacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating evaluation cache: %w", err)
		}
		t.memo = memory.New(strategy, cfg.stats)
		var backend evalcache.Backend = t.memo
		if cfg.snapshotStore != nil {
			c, err := codecs.ByName(cfg.snapshotCodec)
			if err != nil {
				return nil, err
			}
			t.snapCodec = c
			t.snapshot = snapshot.NewBackend(cfg.snapshotStore,
				snapshot.WithClock(cfg.now),
				snapshot.WithStats(cfg.stats),
				snapshot.WithLogger(t.logger),
			)
			backend = evalcache.NewTiered(t.memo, t.snapshot)
		}
		t.evalCache = evalcache.New(cfg.evaluator, backend)
		eval = t.evalCache
	} else if cfg.snapshotStore != nil {
		return nil, fmt.Errorf("gameweek: evaluation snapshot requires the evaluation cache")
	}

	games, err := weekly.New(cfg.source,
		weekly.WithTTL(cfg.ttl),
		weekly.WithLookback(cfg.lookback),
		weekly.WithClock(cfg.now),
		weekly.WithStats(cfg.stats),
		weekly.WithLogger(t.logger),
	)
	if err != nil {
		return nil, err
	}
	t.games = games

	t.sched = scheduler.New(eval,
		scheduler.WithDepth(cfg.depth),
		scheduler.WithProgress(cfg.progress),
		scheduler.WithStats(cfg.stats),
		scheduler.WithLogger(t.logger),
	)

	if cfg.reportStore != nil {
		c, err := codecs.ByName(cfg.reportCodec)
		if err != nil {
			return nil, err
		}
		t.publisher = report.NewPublisher(cfg.reportStore, c,
			report.WithStats(cfg.stats),
			report.WithClock(cfg.now),
			report.WithLogger(t.logger),
		)
	}

	t.logger.Debug("tracker initialized",
		zap.String("timeClass", t.timeClass),
		zap.Int("depth", cfg.depth),
		zap.Int("evalCacheSize", cfg.evalCacheSize),
	)
	return t, nil
}

// Run processes analysis jobs until ctx is done. It waits for the
// evaluator to become ready first.
func (t *Tracker) Run(ctx context.Context) error {
	if t.closed.Load() {
		return ErrClosed
	}
	return t.sched.Run(ctx)
}

// AddPlayer starts tracking name and queues its unscored games. Adding a
// tracked player again only requeues.
func (t *Tracker) AddPlayer(ctx context.Context, name string) (Player, error) {
	if t.closed.Load() {
		return Player{}, ErrClosed
	}
	p, err := newPlayer(name)
	if err != nil {
		return Player{}, err
	}

	t.mu.Lock()
	if cur, ok := t.players[p.ID]; ok {
		p = cur
	} else {
		t.players[p.ID] = p
		t.order = append(t.order, p.ID)
	}
	tc := t.timeClass
	t.mu.Unlock()

	t.enqueue(ctx, p, tc)
	return p, nil
}

// RemovePlayer stops tracking name and drops its cached games. It reports
// whether the player was tracked.
func (t *Tracker) RemovePlayer(name string) bool {
	id := strings.ToLower(strings.TrimSpace(name))

	t.mu.Lock()
	_, ok := t.players[id]
	if ok {
		delete(t.players, id)
		for i, cur := range t.order {
			if cur == id {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	}
	t.mu.Unlock()

	if ok {
		t.games.Invalidate(id)
	}
	return ok
}

// Players returns the tracked players in the order they were added.
func (t *Tracker) Players() []Player {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Player, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.players[id])
	}
	return out
}

// TimeClass returns the tracked time class.
func (t *Tracker) TimeClass() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.timeClass
}

// SetTimeClass switches every player to tc, drops the cached games and
// starts a new refresh cycle. Switching to the current time class is a
// no-op and returns the current cycle id.
func (t *Tracker) SetTimeClass(ctx context.Context, tc string) (string, error) {
	if t.closed.Load() {
		return "", ErrClosed
	}
	tc = strings.ToLower(strings.TrimSpace(tc))
	if tc == "" {
		return "", fmt.Errorf("gameweek: empty time class")
	}

	t.mu.Lock()
	if tc == t.timeClass {
		cycle := t.cycle
		t.mu.Unlock()
		return cycle, nil
	}
	t.timeClass = tc
	t.mu.Unlock()

	t.games.Clear()
	t.logger.Info("time class changed", zap.String("timeClass", tc))
	return t.Refresh(ctx)
}

// Refresh starts a new cycle: progress is reset, every player's week is
// fetched (served from cache while fresh) and unscored games are queued.
// It returns the cycle id. Fetch failures are logged, not returned.
func (t *Tracker) Refresh(ctx context.Context) (string, error) {
	if t.closed.Load() {
		return "", ErrClosed
	}
	cycle := uuid.New().String()

	t.mu.Lock()
	t.cycle = cycle
	players := t.snapshotLocked()
	tc := t.timeClass
	t.mu.Unlock()

	t.sched.ResetProgress()
	queued := 0
	for _, p := range players {
		if err := ctx.Err(); err != nil {
			return cycle, err
		}
		queued += t.enqueue(ctx, p, tc)
	}

	t.logger.Info("refresh cycle started",
		zap.String("cycle", cycle),
		zap.Int("players", len(players)),
		zap.Int("queued", queued),
	)
	return cycle, nil
}

// Weekly returns name's games of the past week with the best and worst
// game among those scored so far. It never fails for fetch errors; an
// unreachable player simply has no games.
func (t *Tracker) Weekly(ctx context.Context, name string) (Summary, error) {
	if t.closed.Load() {
		return Summary{}, ErrClosed
	}
	p, tc, err := t.lookup(name)
	if err != nil {
		return Summary{}, err
	}

	games := t.games.FetchWeeklyGames(ctx, p.ID, tc)
	t.sched.EnqueueAll(p.ID, games)
	best, worst := game.SelectBestWorst(games)
	return Summary{
		Player:    p,
		TimeClass: tc,
		Games:     games,
		Best:      best,
		Worst:     worst,
	}, nil
}

// Ratings returns name's daily rating history in the current time class
// and its summary.
func (t *Tracker) Ratings(ctx context.Context, name string) (RatingSummary, []RatingPoint, error) {
	if t.closed.Load() {
		return RatingSummary{}, nil, ErrClosed
	}
	p, tc, err := t.lookup(name)
	if err != nil {
		return RatingSummary{}, nil, err
	}

	points, err := ratings.History(ctx, t.source, p.ID, tc,
		ratings.WithMonths(t.opts.months),
		ratings.WithClock(t.opts.now),
		ratings.WithLogger(t.logger),
	)
	if err != nil {
		return RatingSummary{}, nil, err
	}
	return ratings.Summarize(points), points, nil
}

// Publish exports every player's current week to the report store and
// returns the run id. Games still being analyzed are exported as such.
// Cached weeks are exported as held; only uncached players are fetched.
func (t *Tracker) Publish(ctx context.Context) (string, error) {
	if t.closed.Load() {
		return "", ErrClosed
	}
	if t.publisher == nil {
		return "", ErrNoReportStore
	}

	t.mu.RLock()
	players := t.snapshotLocked()
	tc := t.timeClass
	t.mu.RUnlock()

	now := t.opts.now()
	reports := make([]report.Report, 0, len(players))
	for _, p := range players {
		games, ok := t.games.Peek(p.ID, tc)
		if !ok {
			games = t.games.FetchWeeklyGames(ctx, p.ID, tc)
		}
		reports = append(reports, report.Build(p.ID, tc, games, now))
	}
	return t.publisher.Publish(ctx, reports...)
}

// Progress returns the analysis counters of the current cycle.
func (t *Tracker) Progress() Progress {
	return t.sched.Progress()
}

// Pending returns the number of queued games.
func (t *Tracker) Pending() int {
	return t.sched.Pending()
}

// WaitIdle blocks until no game is queued or being analyzed.
func (t *Tracker) WaitIdle(ctx context.Context) error {
	return t.sched.WaitIdle(ctx)
}

// EvalCacheStats returns evaluation memo statistics. ok is false when the
// memo is disabled.
func (t *Tracker) EvalCacheStats() (stats evalcache.Stats, ok bool) {
	if t.evalCache == nil {
		return evalcache.Stats{}, false
	}
	return t.evalCache.Stats(), true
}

// LoadEvalSnapshot reads the persisted evaluations so lookups can be
// served from them. It returns the number of evaluations loaded; a missing
// snapshot loads none.
func (t *Tracker) LoadEvalSnapshot(ctx context.Context) (int, error) {
	if t.closed.Load() {
		return 0, ErrClosed
	}
	if t.snapshot == nil {
		return 0, ErrNoSnapshot
	}
	idx, err := t.snapshot.Load(ctx)
	if err != nil {
		return 0, err
	}
	return idx.Entries, nil
}

// SaveEvalSnapshot persists the memoized evaluations together with those
// already in the snapshot. It returns the number of evaluations saved.
func (t *Tracker) SaveEvalSnapshot(ctx context.Context) (int, error) {
	if t.closed.Load() {
		return 0, ErrClosed
	}
	if t.snapshot == nil {
		return 0, ErrNoSnapshot
	}
	var fresh []snapshot.Entry
	t.memo.Each(func(key evalcache.Key, eval engine.Evaluation) {
		fresh = append(fresh, snapshot.NewEntry(key, eval))
	})
	idx, err := t.snapshot.Save(ctx, t.snapCodec, fresh)
	if err != nil {
		return 0, err
	}
	return idx.Entries, nil
}

// Close drops all cached games and closes the report and snapshot stores.
// The evaluator is left to its owner. After Close, the tracker should not be used.
func (t *Tracker) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	t.games.Clear()

	var errs []error
	if t.opts.reportStore != nil {
		if err := t.opts.reportStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing report store: %w", err))
		}
	}
	if t.snapshot != nil && t.opts.snapshotStore != t.opts.reportStore {
		if err := t.snapshot.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing snapshot store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (t *Tracker) enqueue(ctx context.Context, p Player, tc string) int {
	games := t.games.FetchWeeklyGames(ctx, p.ID, tc)
	n := t.sched.EnqueueAll(p.ID, games)
	t.logger.Debug("player refreshed",
		zap.String("player", p.ID),
		zap.Int("games", len(games)),
		zap.Int("queued", n),
	)
	return n
}

func (t *Tracker) lookup(name string) (Player, string, error) {
	id := strings.ToLower(strings.TrimSpace(name))
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.players[id]
	if !ok {
		return Player{}, "", fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
	}
	return p, t.timeClass, nil
}

func (t *Tracker) snapshotLocked() []Player {
	out := make([]Player, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.players[id])
	}
	return out
}

func newPlayer(name string) (Player, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "/?#% \t") {
		return Player{}, fmt.Errorf("%w: %q", ErrInvalidPlayer, name)
	}
	return Player{ID: strings.ToLower(name), Name: name}, nil
}

// SortByAccuracy orders scored games best first, leaving unscored games
// at the end in their original order.
func SortByAccuracy(games []*Record) []*Record {
	out := append([]*Record(nil), games...)
	sort.SliceStable(out, func(i, j int) bool {
		ai, iok := out[i].Accuracy()
		aj, jok := out[j].Accuracy()
		if iok != jok {
			return iok
		}
		return iok && ai > aj
	})
	return out
}
