package evalcache

import (
	"context"

	"github.com/discochess/gameweek/internal/engine"
	"github.com/discochess/gameweek/internal/fen"
)

// Evaluator is the evaluation source being cached.
type Evaluator interface {
	Evaluate(ctx context.Context, position string, depth int) (engine.Evaluation, error)
}

// Compile-time check that Cache implements Evaluator.
var _ Evaluator = (*Cache)(nil)

// closed is returned by Ready when the underlying evaluator has no
// readiness signal.
var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Cache wraps an Evaluator with memoization. Failed evaluations are not
// cached. Cache adds no locking around the underlying evaluator, so the
// single-caller contract of engine.Client still applies.
type Cache struct {
	underlying Evaluator
	backend    Backend
}

// New creates a cache in front of underlying.
func New(underlying Evaluator, backend Backend) *Cache {
	return &Cache{
		underlying: underlying,
		backend:    backend,
	}
}

// Evaluate returns a cached evaluation of position at depth, asking the
// underlying evaluator on a miss. Positions differing only in their move
// clocks share an entry.
func (c *Cache) Evaluate(ctx context.Context, position string, depth int) (engine.Evaluation, error) {
	norm, err := fen.Normalize(position)
	if err != nil {
		// Let the underlying evaluator report the bad input.
		return c.underlying.Evaluate(ctx, position, depth)
	}

	key := Key{Position: norm, Depth: depth}
	if eval, ok := c.backend.Get(key); ok {
		return eval, nil
	}

	eval, err := c.underlying.Evaluate(ctx, position, depth)
	if err != nil {
		return engine.Evaluation{}, err
	}
	c.backend.Set(key, eval)
	return eval, nil
}

// Ready forwards the underlying evaluator's readiness signal.
func (c *Cache) Ready() <-chan struct{} {
	if r, ok := c.underlying.(interface{ Ready() <-chan struct{} }); ok {
		return r.Ready()
	}
	return closed
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	return c.backend.Stats()
}
