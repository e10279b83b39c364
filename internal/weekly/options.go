package weekly

import (
	"time"

	"go.uber.org/zap"

	"github.com/discochess/gameweek/internal/stats"
)

const (
	// DefaultTTL is how long a fetched week stays valid.
	DefaultTTL = 300 * time.Second

	// DefaultLookback is how many monthly archives are read per fetch. Two
	// covers a week that straddles a month boundary.
	DefaultLookback = 2

	// DefaultWindow is the span of "this week".
	DefaultWindow = 7 * 24 * time.Hour

	// DefaultCapacity bounds the number of players held.
	DefaultCapacity = 256
)

// Option configures a Cache.
type Option interface {
	apply(*options)
}

type options struct {
	ttl      time.Duration
	lookback int
	window   time.Duration
	capacity int
	now      func() time.Time
	stats    stats.Collector
	logger   *zap.Logger
}

func defaultOptions() options {
	return options{
		ttl:      DefaultTTL,
		lookback: DefaultLookback,
		window:   DefaultWindow,
		capacity: DefaultCapacity,
		now:      time.Now,
		stats:    stats.NewNoop(),
		logger:   zap.NewNop(),
	}
}

type optionFunc func(*options)

var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithTTL sets how long a fetched entry is served from cache.
func WithTTL(d time.Duration) Option {
	return optionFunc(func(o *options) { o.ttl = d })
}

// WithLookback sets how many of the most recent monthly archives are read.
func WithLookback(n int) Option {
	return optionFunc(func(o *options) {
		if n > 0 {
			o.lookback = n
		}
	})
}

// WithWindow sets how far back a game may have ended to count as this week.
func WithWindow(d time.Duration) Option {
	return optionFunc(func(o *options) { o.window = d })
}

// WithCapacity bounds the number of players cached at once. The least
// recently used player is evicted and its records orphaned.
func WithCapacity(n int) Option {
	return optionFunc(func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	})
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) { o.now = now })
}

// WithStats sets the stats collector.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) { o.stats = c })
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) { o.logger = l })
}
