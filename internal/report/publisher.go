package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/discochess/gameweek/internal/codec"
	"github.com/discochess/gameweek/internal/stats"
	"github.com/discochess/gameweek/internal/store"
)

// Option configures a Publisher.
type Option func(*Publisher)

// WithStats sets the stats collector.
func WithStats(c stats.Collector) Option {
	return func(p *Publisher) { p.stats = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithClock replaces time.Now for manifest timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

// Publisher writes encoded reports to a store and keeps the manifest
// current.
type Publisher struct {
	store  store.Store
	codec  codec.Codec
	stats  stats.Collector
	logger *zap.Logger
	now    func() time.Time

	// mu serializes manifest read-modify-write in this process.
	mu sync.Mutex
}

// NewPublisher creates a Publisher.
func NewPublisher(s store.Store, c codec.Codec, opts ...Option) *Publisher {
	p := &Publisher{
		store:  s,
		codec:  c,
		stats:  stats.NewNoop(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("report")
	return p
}

// Key returns the store key of a report.
func (p *Publisher) Key(r Report) string {
	key := r.Week + "/" + r.Player + "-" + r.TimeClass + ".json"
	if ext := p.codec.Extension(); ext != "" {
		key += "." + ext
	}
	return key
}

// Publish writes every report under one run id and records them in the
// manifest. It returns the run id.
func (p *Publisher) Publish(ctx context.Context, reports ...Report) (string, error) {
	runID := uuid.New().String()
	if len(reports) == 0 {
		return runID, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	m, err := ReadManifest(ctx, p.store)
	if err != nil {
		return "", err
	}

	for _, r := range reports {
		r.RunID = runID
		key := p.Key(r)

		data, err := json.Marshal(r)
		if err != nil {
			return "", fmt.Errorf("marshaling report for %s: %w", r.Player, err)
		}
		encoded, err := p.codec.Encode(data)
		if err != nil {
			return "", fmt.Errorf("encoding report for %s: %w", r.Player, err)
		}
		if err := p.store.Put(ctx, key, encoded); err != nil {
			return "", fmt.Errorf("publishing report for %s: %w", r.Player, err)
		}

		m.upsert(Entry{
			Player:      r.Player,
			TimeClass:   r.TimeClass,
			Week:        r.Week,
			Key:         key,
			Compression: p.codec.Name(),
			RunID:       runID,
			GeneratedAt: r.GeneratedAt,
			Games:       r.Games,
		})
		p.stats.IncCounter(stats.MetricReportsPublished, 1)
		p.logger.Debug("report published",
			zap.String("player", r.Player),
			zap.String("key", key),
			zap.Int("bytes", len(encoded)))
	}

	m.Version = Version
	m.UpdatedAt = p.now().UTC()
	if err := WriteManifest(ctx, p.store, m); err != nil {
		return "", err
	}
	p.logger.Info("reports published", zap.String("run_id", runID), zap.Int("reports", len(reports)))
	return runID, nil
}
