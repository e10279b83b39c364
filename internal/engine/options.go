package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/discochess/gameweek/internal/stats"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 10 * time.Second

// Option configures a Client.
type Option interface {
	apply(*options)
}

// setOption is one "setoption" line sent during the handshake.
type setOption struct {
	name  string
	value string
}

type options struct {
	timeout    time.Duration
	setOptions []setOption
	stats      stats.Collector
	logger     *zap.Logger
}

func defaultOptions() options {
	return options{
		timeout: DefaultTimeout,
		stats:   stats.NewNoop(),
		logger:  zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithTimeout bounds every evaluation. Default is 10s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	})
}

// WithSetOption sends "setoption name <name> value <value>" before the
// readiness check. Options are sent in the order given.
func WithSetOption(name, value string) Option {
	return optionFunc(func(o *options) {
		o.setOptions = append(o.setOptions, setOption{name: name, value: value})
	})
}

// WithStats sets the stats collector.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}
