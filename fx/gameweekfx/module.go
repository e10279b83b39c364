// Package gameweekfx provides fx modules for a gameweek tracker and the UCI
// engine that scores its games.
package gameweekfx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/gameweek"
	"github.com/discochess/gameweek/internal/engine"
	"github.com/discochess/gameweek/internal/stats"
	"github.com/discochess/gameweek/internal/stats/logger"
	promstats "github.com/discochess/gameweek/internal/stats/prometheus"
)

// Config holds configuration for the tracker and its engine.
type Config struct {
	// EnginePath is the UCI engine binary, e.g. "stockfish".
	EnginePath string

	// EngineOptions are sent as setoption lines before isready,
	// e.g. {"Threads": "2", "Hash": "64"}.
	EngineOptions map[string]string

	// EngineTimeout bounds a single evaluation. Default is 10s.
	EngineTimeout time.Duration

	// Depth is the search depth per position. Default is 12.
	Depth int

	// TimeClass is the tracked time class. Default is "blitz".
	TimeClass string

	// Players are tracked from startup.
	Players []string

	// ReportDir enables report publishing to this directory or to a
	// gs://bucket/prefix or s3://bucket/prefix location.
	ReportDir string

	// EvalDir persists memoized evaluations to this directory or bucket
	// location. They are loaded on start and saved on stop.
	EvalDir string

	// Compression is the report and snapshot codec: "zstd" (default),
	// "gzip" or "none".
	Compression string

	// EvalCacheSize bounds the evaluation memo. Default is 50000.
	EvalCacheSize int
}

// Module provides a *gameweek.Tracker whose worker runs for the lifetime
// of the app. Requires Config, a *zap.Logger and a gameweek.Evaluator
// (see EngineModule). A prometheus.Registerer and a gameweek.Source are
// used when provided.
var Module = fx.Module("gameweek",
	fx.Provide(
		newStatsCollector,
		newTracker,
	),
)

// EngineModule provides a started UCI engine as the gameweek.Evaluator.
var EngineModule = fx.Module("gameweekengine",
	fx.Provide(
		fx.Annotate(newEngine, fx.As(new(gameweek.Evaluator)), fx.As(fx.Self())),
	),
)

// StatsParams holds dependencies for the stats collector.
type StatsParams struct {
	fx.In

	Logger     *zap.Logger
	Registerer prometheus.Registerer `optional:"true"`
}

func newStatsCollector(p StatsParams) stats.Collector {
	if p.Registerer != nil {
		return promstats.New(p.Registerer)
	}
	return logger.New(p.Logger.Named("gameweek.stats"))
}

// EngineParams holds dependencies for the engine.
type EngineParams struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

func newEngine(p EngineParams) (*engine.Client, error) {
	if p.Config.EnginePath == "" {
		return nil, errors.New("gameweekfx: no engine path configured")
	}
	proc, err := engine.StartProcess(p.Config.EnginePath)
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{
		engine.WithStats(p.Collector),
		engine.WithLogger(p.Logger),
	}
	if p.Config.EngineTimeout > 0 {
		opts = append(opts, engine.WithTimeout(p.Config.EngineTimeout))
	}
	for name, value := range p.Config.EngineOptions {
		opts = append(opts, engine.WithSetOption(name, value))
	}
	client := engine.New(proc, opts...)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// The handshake completes in the background; the tracker
			// waits on readiness before its first job.
			return client.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

// Params holds dependencies for creating the tracker.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Evaluator gameweek.Evaluator
	Source    gameweek.Source `optional:"true"`
	Lifecycle fx.Lifecycle
}

// Result holds the provided tracker.
type Result struct {
	fx.Out

	Tracker *gameweek.Tracker
}

func newTracker(p Params) (Result, error) {
	opts := []gameweek.Option{
		gameweek.WithEvaluator(p.Evaluator),
		gameweek.WithTimeClass(p.Config.TimeClass),
		gameweek.WithStats(p.Collector),
		gameweek.WithLogger(p.Logger),
	}
	if p.Source != nil {
		opts = append(opts, gameweek.WithSource(p.Source))
	}
	if p.Config.Depth > 0 {
		opts = append(opts, gameweek.WithDepth(p.Config.Depth))
	}
	if p.Config.EvalCacheSize > 0 {
		opts = append(opts, gameweek.WithEvalCacheSize(p.Config.EvalCacheSize))
	}
	compression := p.Config.Compression
	if compression == "" {
		compression = "zstd"
	}
	if p.Config.ReportDir != "" {
		opt, err := gameweek.WithReportLocation(context.Background(), p.Config.ReportDir, compression)
		if err != nil {
			return Result{}, err
		}
		opts = append(opts, opt)
	}
	if p.Config.EvalDir != "" {
		opt, err := gameweek.WithEvalSnapshotLocation(context.Background(), p.Config.EvalDir, compression)
		if err != nil {
			return Result{}, err
		}
		opts = append(opts, opt)
	}

	tracker, err := gameweek.New(opts...)
	if err != nil {
		return Result{}, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if p.Config.EvalDir != "" {
				// A bad snapshot only costs engine time.
				if _, err := tracker.LoadEvalSnapshot(ctx); err != nil {
					p.Logger.Warn("evaluation snapshot not loaded", zap.Error(err))
				}
			}
			go func() {
				defer close(done)
				if err := tracker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					p.Logger.Error("tracker worker stopped", zap.Error(err))
				}
			}()
			for _, name := range p.Config.Players {
				if _, err := tracker.AddPlayer(ctx, name); err != nil {
					cancel()
					return fmt.Errorf("adding player: %w", err)
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			if p.Config.EvalDir != "" {
				if _, err := tracker.SaveEvalSnapshot(ctx); err != nil {
					p.Logger.Error("saving evaluation snapshot", zap.Error(err))
				}
			}
			return tracker.Close()
		},
	})

	return Result{Tracker: tracker}, nil
}
