package scheduler

import (
	"time"

	"go.uber.org/zap"

	"github.com/discochess/gameweek/internal/stats"
)

const (
	// DefaultDepth is the search depth per position.
	DefaultDepth = 12

	// DefaultReadinessBackoff is the re-check interval for evaluators that
	// expose IsReady but no ready channel.
	DefaultReadinessBackoff = time.Second
)

// Option configures a Scheduler.
type Option interface {
	apply(*options)
}

type options struct {
	depth    int
	backoff  time.Duration
	progress ProgressFunc
	stats    stats.Collector
	logger   *zap.Logger
}

func defaultOptions() options {
	return options{
		depth:    DefaultDepth,
		backoff:  DefaultReadinessBackoff,
		progress: func(Progress) {},
		stats:    stats.NewNoop(),
		logger:   zap.NewNop(),
	}
}

type optionFunc func(*options)

var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithDepth sets the engine search depth. Default is 12.
func WithDepth(depth int) Option {
	return optionFunc(func(o *options) {
		if depth > 0 {
			o.depth = depth
		}
	})
}

// WithReadinessBackoff sets the readiness poll interval.
func WithReadinessBackoff(d time.Duration) Option {
	return optionFunc(func(o *options) {
		if d > 0 {
			o.backoff = d
		}
	})
}

// WithProgress sets the render hook.
func WithProgress(fn ProgressFunc) Option {
	return optionFunc(func(o *options) {
		if fn != nil {
			o.progress = fn
		}
	})
}

// WithStats sets the stats collector.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) { o.stats = c })
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) { o.logger = l })
}
