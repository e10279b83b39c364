// Package scheduler serializes game analysis onto the single engine
// session.
//
// Records move pending → analyzing → complete or failed. One worker
// goroutine (Run) pops jobs in enqueue order and evaluates each game's
// positions in ply order, so the engine never sees two requests at once.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/gameweek/internal/accuracy"
	"github.com/discochess/gameweek/internal/engine"
	"github.com/discochess/gameweek/internal/game"
	"github.com/discochess/gameweek/internal/replay"
	"github.com/discochess/gameweek/internal/stats"
)

// ErrUnscoreable is recorded when a game yields no move by the tracked
// player. Such games fail and are never retried.
var ErrUnscoreable = errors.New("scheduler: game has no scoreable moves")

// Evaluator scores positions. Implementations may also expose
//
//	Ready() <-chan struct{}
//
// or, failing that, IsReady() bool, which Run waits on before the first job.
type Evaluator interface {
	Evaluate(ctx context.Context, position string, depth int) (engine.Evaluation, error)
}

// Job is one queued analysis.
type Job struct {
	Player string
	Record *game.Record
}

// State is the pipeline state owned by a Scheduler.
type State struct {
	Queue    []Job
	Queued   map[string]bool
	Busy     bool
	Progress Progress
}

// Scheduler owns the analysis queue.
type Scheduler struct {
	eval   Evaluator
	opts   options
	logger *zap.Logger

	wake chan struct{}

	mu         sync.Mutex
	state      State
	idle       chan struct{}
	idleClosed bool
}

// New creates a Scheduler evaluating through eval.
func New(eval Evaluator, opts ...Option) *Scheduler {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	idle := make(chan struct{})
	close(idle)
	return &Scheduler{
		eval:       eval,
		opts:       o,
		logger:     o.logger.Named("scheduler"),
		wake:       make(chan struct{}, 1),
		state:      State{Queued: make(map[string]bool)},
		idle:       idle,
		idleClosed: true,
	}
}

// Enqueue queues rec for analysis on behalf of player. It reports false
// when the record does not need analysis or a job for the same game is
// already queued.
func (s *Scheduler) Enqueue(player string, rec *game.Record) bool {
	if rec == nil || !rec.NeedsAnalysis() {
		return false
	}

	s.mu.Lock()
	if s.state.Queued[rec.ID] {
		s.mu.Unlock()
		return false
	}
	s.state.Queue = append(s.state.Queue, Job{Player: player, Record: rec})
	s.state.Queued[rec.ID] = true
	s.state.Progress.Total++
	depth := len(s.state.Queue)
	s.updateIdleLocked()
	s.mu.Unlock()

	s.opts.stats.IncCounter(stats.MetricJobsEnqueued, 1)
	s.opts.stats.SetGauge(stats.MetricQueueDepth, int64(depth))

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// EnqueueAll queues every record that needs analysis and returns how many
// were accepted.
func (s *Scheduler) EnqueueAll(player string, records []*game.Record) int {
	n := 0
	for _, rec := range records {
		if s.Enqueue(player, rec) {
			n++
		}
	}
	return n
}

// ResetProgress starts a new refresh cycle: the analyzed count drops to
// zero and the total becomes the work still outstanding.
func (s *Scheduler) ResetProgress() {
	s.mu.Lock()
	s.state.Progress.Analyzed = 0
	s.state.Progress.Total = len(s.state.Queue)
	if s.state.Busy {
		s.state.Progress.Total++
	}
	p := s.state.Progress
	s.mu.Unlock()

	s.opts.progress(p)
}

// Progress returns the counters of the current cycle.
func (s *Scheduler) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Progress
}

// Pending returns the number of queued jobs, not counting the one in
// progress.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Queue)
}

// WaitIdle blocks until the queue is drained and no job is running.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run waits for the evaluator to become ready, then processes jobs until
// ctx is done. It must be called from exactly one goroutine.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.awaitReady(ctx); err != nil {
		return err
	}
	s.logger.Info("scheduler running", zap.Int("depth", s.opts.depth))

	for {
		job, ok := s.pop()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		s.process(ctx, job)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Scheduler) awaitReady(ctx context.Context) error {
	if r, ok := s.eval.(interface{ Ready() <-chan struct{} }); ok {
		select {
		case <-r.Ready():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r, ok := s.eval.(interface{ IsReady() bool })
	if !ok {
		return nil
	}
	ticker := time.NewTicker(s.opts.backoff)
	defer ticker.Stop()
	for !r.IsReady() {
		s.logger.Debug("engine not ready, backing off", zap.Duration("backoff", s.opts.backoff))
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Scheduler) pop() (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.Queue) == 0 {
		return Job{}, false
	}
	job := s.state.Queue[0]
	s.state.Queue[0] = Job{}
	s.state.Queue = s.state.Queue[1:]
	delete(s.state.Queued, job.Record.ID)
	s.state.Busy = true
	s.updateIdleLocked()

	s.opts.stats.SetGauge(stats.MetricQueueDepth, int64(len(s.state.Queue)))
	return job, true
}

func (s *Scheduler) process(ctx context.Context, job Job) {
	rec := job.Record
	log := s.logger.With(zap.String("player", job.Player), zap.String("game", rec.ID))

	if rec.Orphaned() || !rec.MarkAnalyzing() {
		log.Debug("skipping game", zap.Stringer("status", rec.Status()), zap.Bool("orphaned", rec.Orphaned()))
		s.opts.stats.IncCounter(stats.MetricJobsSkipped, 1)
		s.finish()
		return
	}
	s.render()

	start := time.Now()
	acc, err := s.analyze(ctx, rec)
	elapsed := time.Since(start)
	s.opts.stats.ObserveHistogram(stats.MetricJobSeconds, elapsed.Seconds())

	// Shutdown is not the game's fault: put it back for the next Run.
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		if rec.Release() {
			s.requeue(job)
			log.Info("analysis interrupted, game requeued", zap.Duration("elapsed", elapsed))
			return
		}
	}

	if err != nil {
		rec.Fail()
		s.opts.stats.IncCounter(stats.MetricJobsFailed, 1)
		log.Warn("analysis failed", zap.Error(err), zap.Duration("elapsed", elapsed))
	} else {
		rec.Complete(acc)
		s.opts.stats.IncCounter(stats.MetricJobsCompleted, 1)
		log.Info("analysis complete", zap.Float64("accuracy", acc), zap.Duration("elapsed", elapsed))
	}
	s.finish()
}

// analyze replays the game, evaluates every position and scores the
// tracked player's moves.
func (s *Scheduler) analyze(ctx context.Context, rec *game.Record) (float64, error) {
	positions := replay.FromText(rec.MoveText)
	if len(positions) < 2 {
		return 0, ErrUnscoreable
	}

	evals := make([]int, len(positions))
	movers := make([]game.Color, len(positions))
	for i, p := range positions {
		ev, err := s.eval.Evaluate(ctx, p.FEN, s.opts.depth)
		if err != nil {
			return 0, fmt.Errorf("evaluating ply %d: %w", i, err)
		}
		evals[i] = ev.Value
		movers[i] = p.Turn
	}

	acc, ok := accuracy.Score(evals, movers, rec.PlayerColor)
	if !ok {
		return 0, ErrUnscoreable
	}
	return acc, nil
}

// requeue puts an interrupted job back at the head of the queue without
// counting it as analyzed.
func (s *Scheduler) requeue(job Job) {
	s.mu.Lock()
	s.state.Queue = append([]Job{job}, s.state.Queue...)
	s.state.Queued[job.Record.ID] = true
	s.state.Busy = false
	depth := len(s.state.Queue)
	s.updateIdleLocked()
	s.mu.Unlock()

	s.opts.stats.SetGauge(stats.MetricQueueDepth, int64(depth))
	s.render()
}

func (s *Scheduler) finish() {
	s.mu.Lock()
	s.state.Busy = false
	s.state.Progress.Analyzed++
	s.updateIdleLocked()
	s.mu.Unlock()

	s.render()
}

func (s *Scheduler) render() {
	s.opts.progress(s.Progress())
}

// updateIdleLocked keeps the idle channel in step with the queue. Callers
// hold s.mu.
func (s *Scheduler) updateIdleLocked() {
	idle := len(s.state.Queue) == 0 && !s.state.Busy
	switch {
	case idle && !s.idleClosed:
		close(s.idle)
		s.idleClosed = true
	case !idle && s.idleClosed:
		s.idle = make(chan struct{})
		s.idleClosed = false
	}
}
