// Package engine is a client for a UCI analysis engine.
//
// A Client owns one engine session and correlates requests with responses
// through a single pending slot. It is built to be driven by one caller at
// a time (the analysis scheduler); a second Evaluate issued while one is in
// flight fails with ErrBusy instead of interleaving on the session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/gameweek/internal/fen"
	"github.com/discochess/gameweek/internal/stats"
)

var (
	// ErrEngineNotReady is returned when Evaluate is called before the
	// engine has answered "readyok".
	ErrEngineNotReady = errors.New("engine: not ready")

	// ErrEvaluationTimeout is returned when the engine does not finish a
	// search within the configured timeout.
	ErrEvaluationTimeout = errors.New("engine: evaluation timed out")

	// ErrBusy is returned when an evaluation is already outstanding.
	ErrBusy = errors.New("engine: evaluation already in flight")

	// ErrClosed is returned after the session has ended.
	ErrClosed = errors.New("engine: session closed")
)

// Evaluation is the engine's assessment of a position from White's
// perspective.
type Evaluation struct {
	Kind Kind

	// Value is in centipawns; mates are normalized to ±MateScore.
	Value int

	// Depth is the search depth the score was reported at. Zero when the
	// engine finished without reporting a score.
	Depth int

	// MateIn is the signed distance to mate from White's perspective.
	// Only meaningful when Kind is Mate.
	MateIn int

	BestMove string
}

// request is the single in-flight evaluation.
type request struct {
	seq         uint64
	depth       int
	whiteToMove bool
	scored      bool
	eval        Evaluation
	done        chan result
}

type result struct {
	eval Evaluation
	err  error
}

// Client speaks UCI to one engine session.
type Client struct {
	transport Transport
	opts      options
	logger    *zap.Logger

	ready     chan struct{}
	readyOnce sync.Once
	closed    chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	mu      sync.Mutex
	seq     uint64
	pending *request
	// barrier is open from abandoning a search until the engine answers
	// the "isready" sent after "stop". Search output seen meanwhile
	// belongs to the abandoned search.
	barrier chan struct{}
}

// New creates a client over t. Call Start to perform the handshake.
func New(t Transport, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	return &Client{
		transport: t,
		opts:      o,
		logger:    o.logger.Named("engine"),
		ready:     make(chan struct{}),
		closed:    make(chan struct{}),
	}
}

// Start begins reading engine output and sends the handshake: "uci", any
// configured "setoption" lines, then "isready". It does not wait for the
// engine; Ready is closed once "readyok" arrives.
func (c *Client) Start(ctx context.Context) error {
	var err error
	c.startOnce.Do(func() {
		go c.readLoop()

		lines := []string{"uci"}
		for _, so := range c.opts.setOptions {
			lines = append(lines, fmt.Sprintf("setoption name %s value %s", so.name, so.value))
		}
		lines = append(lines, "isready")

		for _, line := range lines {
			if ctx.Err() != nil {
				err = ctx.Err()
				return
			}
			if werr := c.transport.WriteLine(line); werr != nil {
				err = fmt.Errorf("engine handshake %q: %w", line, werr)
				return
			}
		}
		c.logger.Debug("handshake sent", zap.Int("setoptions", len(c.opts.setOptions)))
	})
	return err
}

// Ready is closed once the engine has answered "readyok".
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// IsReady reports whether the engine has answered "readyok".
func (c *Client) IsReady() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the engine is ready, the session ends or ctx is
// done.
func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Evaluate searches position to depth and returns the first score the
// engine reports at or beyond that depth.
func (c *Client) Evaluate(ctx context.Context, position string, depth int) (Evaluation, error) {
	select {
	case <-c.closed:
		return Evaluation{}, ErrClosed
	default:
	}
	if !c.IsReady() {
		return Evaluation{}, ErrEngineNotReady
	}
	whiteToMove, err := fen.WhiteToMove(position)
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluating %q: %w", position, err)
	}
	if err := c.awaitBarrier(ctx); err != nil {
		return Evaluation{}, err
	}

	c.mu.Lock()
	if c.pending != nil || c.barrier != nil {
		c.mu.Unlock()
		return Evaluation{}, ErrBusy
	}
	c.seq++
	req := &request{
		seq:         c.seq,
		depth:       depth,
		whiteToMove: whiteToMove,
		done:        make(chan result, 1),
	}
	c.pending = req
	c.mu.Unlock()

	start := time.Now()
	for _, line := range []string{"position fen " + position, fmt.Sprintf("go depth %d", depth)} {
		if err := c.transport.WriteLine(line); err != nil {
			c.clear(req)
			return Evaluation{}, fmt.Errorf("sending %q: %w", line, err)
		}
	}

	timer := time.NewTimer(c.opts.timeout)
	defer timer.Stop()

	select {
	case res := <-req.done:
		c.opts.stats.IncCounter(stats.MetricEvaluations, 1)
		c.opts.stats.ObserveHistogram(stats.MetricEvaluationSeconds, time.Since(start).Seconds())
		return res.eval, res.err
	case <-timer.C:
		if res, ok := c.abandon(req); ok {
			return res.eval, res.err
		}
		c.opts.stats.IncCounter(stats.MetricEvaluationTimeouts, 1)
		c.logger.Warn("evaluation timed out",
			zap.Uint64("seq", req.seq),
			zap.String("fen", position),
			zap.Duration("timeout", c.opts.timeout),
		)
		return Evaluation{}, ErrEvaluationTimeout
	case <-ctx.Done():
		if res, ok := c.abandon(req); ok {
			return res.eval, res.err
		}
		return Evaluation{}, ctx.Err()
	}
}

// abandon clears req from the slot, stops the search and raises the
// barrier. If the response raced in first it is returned instead.
func (c *Client) abandon(req *request) (result, bool) {
	c.mu.Lock()
	if c.pending != req {
		c.mu.Unlock()
		return <-req.done, true
	}
	c.pending = nil
	if c.barrier == nil {
		c.barrier = make(chan struct{})
	}
	c.mu.Unlock()

	for _, line := range []string{"stop", "isready"} {
		if err := c.transport.WriteLine(line); err != nil {
			c.logger.Debug("abandoning search", zap.String("command", line), zap.Error(err))
		}
	}
	return result{}, false
}

// awaitBarrier waits, within the evaluation timeout, for the engine to
// confirm an abandoned search is over.
func (c *Client) awaitBarrier(ctx context.Context) error {
	c.mu.Lock()
	b := c.barrier
	c.mu.Unlock()
	if b == nil {
		return nil
	}

	timer := time.NewTimer(c.opts.timeout)
	defer timer.Stop()

	select {
	case <-b:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-timer.C:
		return ErrEvaluationTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lowerBarrier ends the resync started by abandon.
func (c *Client) lowerBarrier() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.barrier != nil {
		close(c.barrier)
		c.barrier = nil
		c.logger.Debug("engine resynchronized")
	}
}

func (c *Client) clear(req *request) {
	c.mu.Lock()
	if c.pending == req {
		c.pending = nil
	}
	c.mu.Unlock()
}

// Close ends the session.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.transport.Close()
	})
	return err
}

func (c *Client) readLoop() {
	for line := range c.transport.Lines() {
		c.handle(line)
	}

	close(c.closed)
	c.mu.Lock()
	if req := c.pending; req != nil {
		c.pending = nil
		req.done <- result{err: ErrClosed}
	}
	c.mu.Unlock()
	c.logger.Debug("engine output closed")
}

func (c *Client) handle(line string) {
	switch {
	case line == "readyok":
		c.readyOnce.Do(func() {
			close(c.ready)
			c.logger.Info("engine ready")
		})
		c.lowerBarrier()
	case line == "uciok":
		c.logger.Debug("uciok")
	default:
		if in, ok := parseInfo(line); ok {
			c.handleInfo(in)
			return
		}
		if move, ok := parseBestMove(line); ok {
			c.handleBestMove(move)
		}
	}
}

func (c *Client) handleInfo(in info) {
	if !in.hasScore {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.barrier != nil {
		return
	}
	req := c.pending
	if req == nil || req.scored || in.depth < req.depth {
		return
	}

	req.scored = true
	req.eval = Evaluation{
		Kind:  in.kind,
		Value: whitePerspective(in.kind, in.raw, req.whiteToMove),
		Depth: in.depth,
	}
	if in.kind == Mate {
		req.eval.MateIn = in.raw
		if !req.whiteToMove {
			req.eval.MateIn = -in.raw
		}
	}
}

func (c *Client) handleBestMove(move string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.barrier != nil {
		c.logger.Debug("discarded bestmove of abandoned search", zap.String("move", move))
		return
	}
	req := c.pending
	if req == nil {
		return
	}
	c.pending = nil

	// A search that ends without a score counts as level.
	eval := req.eval
	if !req.scored {
		eval = Evaluation{Kind: Centipawn}
	}
	eval.BestMove = move
	req.done <- result{eval: eval}
}
