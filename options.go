package gameweek

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/gameweek/internal/chesscom"
	"github.com/discochess/gameweek/internal/codec/codecs"
	"github.com/discochess/gameweek/internal/ratings"
	"github.com/discochess/gameweek/internal/scheduler"
	"github.com/discochess/gameweek/internal/stats"
	"github.com/discochess/gameweek/internal/store"
	"github.com/discochess/gameweek/internal/store/storeurl"
	"github.com/discochess/gameweek/internal/weekly"
)

const (
	// DefaultTimeClass is the time class tracked until SetTimeClass.
	DefaultTimeClass = "blitz"

	// DefaultEvalCacheSize is the number of memoized evaluations.
	DefaultEvalCacheSize = 50_000
)

// Option configures a Tracker.
type Option interface {
	apply(*options)
}

// options holds the tracker configuration.
type options struct {
	source        Source
	evaluator     Evaluator
	timeClass     string
	depth         int
	ttl           time.Duration
	lookback      int
	months        int
	evalCacheSize int
	reportStore   store.Store
	reportCodec   string
	snapshotStore store.Store
	snapshotCodec string
	progress      ProgressFunc
	now           func() time.Time
	stats         stats.Collector
	logger        *zap.Logger
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		timeClass:     DefaultTimeClass,
		depth:         scheduler.DefaultDepth,
		ttl:           weekly.DefaultTTL,
		lookback:      weekly.DefaultLookback,
		months:        ratings.DefaultMonths,
		evalCacheSize: DefaultEvalCacheSize,
		reportCodec:   "zstd",
		snapshotCodec: "zstd",
		now:           time.Now,
		stats:         stats.NewNoop(),
		logger:        zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithEvaluator sets the position evaluator, usually an engine client.
// It is required.
func WithEvaluator(e Evaluator) Option {
	return optionFunc(func(o *options) {
		o.evaluator = e
	})
}

// WithSource sets the remote game source.
// If not set, the public chess.com API is used.
func WithSource(s Source) Option {
	return optionFunc(func(o *options) {
		o.source = s
	})
}

// WithTimeClass sets the initial time class ("bullet", "blitz", "rapid",
// "daily").
func WithTimeClass(tc string) Option {
	return optionFunc(func(o *options) {
		if tc != "" {
			o.timeClass = tc
		}
	})
}

// WithDepth sets the engine search depth. Default is 12.
func WithDepth(depth int) Option {
	return optionFunc(func(o *options) {
		o.depth = depth
	})
}

// WithCacheTTL sets how long a player's weekly games are served from cache.
// Default is 300s.
func WithCacheTTL(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.ttl = d
	})
}

// WithLookback sets how many monthly archives a weekly fetch reads.
func WithLookback(n int) Option {
	return optionFunc(func(o *options) {
		o.lookback = n
	})
}

// WithRatingMonths sets how many monthly archives rating history reads.
func WithRatingMonths(n int) Option {
	return optionFunc(func(o *options) {
		o.months = n
	})
}

// WithEvalCacheSize sets the evaluation memo size. Zero disables it.
func WithEvalCacheSize(n int) Option {
	return optionFunc(func(o *options) {
		o.evalCacheSize = n
	})
}

// WithReportStore enables report publishing to s, compressed with the named
// codec ("zstd", "gzip" or "none"). The tracker closes s on Close.
func WithReportStore(s store.Store, compression string) Option {
	return optionFunc(func(o *options) {
		o.reportStore = s
		o.reportCodec = compression
	})
}

// WithReportLocation publishes reports to location with the named codec.
// The location is a directory, gs://bucket/prefix or s3://bucket/prefix.
func WithReportLocation(ctx context.Context, location, compression string) (Option, error) {
	if _, err := codecs.ByName(compression); err != nil {
		return nil, err
	}
	st, err := storeurl.Open(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("creating report store: %w", err)
	}
	return WithReportStore(st, compression), nil
}

// WithEvalSnapshotStore persists memoized evaluations to s, compressed
// with the named codec. It requires the evaluation memo. The tracker
// closes s on Close.
func WithEvalSnapshotStore(s store.Store, compression string) Option {
	return optionFunc(func(o *options) {
		o.snapshotStore = s
		o.snapshotCodec = compression
	})
}

// WithEvalSnapshotLocation persists memoized evaluations to location,
// accepted in the same forms as WithReportLocation.
func WithEvalSnapshotLocation(ctx context.Context, location, compression string) (Option, error) {
	if _, err := codecs.ByName(compression); err != nil {
		return nil, err
	}
	st, err := storeurl.Open(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot store: %w", err)
	}
	return WithEvalSnapshotStore(st, compression), nil
}

// WithProgress sets a callback invoked whenever a record changes state.
func WithProgress(fn ProgressFunc) Option {
	return optionFunc(func(o *options) {
		o.progress = fn
	})
}

// WithClock replaces time.Now. It drives the weekly window, the cache TTL
// and report timestamps.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		if now != nil {
			o.now = now
		}
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

func (o *options) defaultSource() Source {
	return chesscom.NewClient(chesscom.WithLogger(o.logger))
}
