package evalcache

import (
	"context"
	"errors"
	"testing"

	"github.com/discochess/gameweek/internal/engine"
)

// fakeBackend is a simple in-memory backend for testing.
type fakeBackend struct {
	data   map[Key]engine.Evaluation
	hits   int64
	misses int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: make(map[Key]engine.Evaluation)}
}

func (b *fakeBackend) Get(key Key) (engine.Evaluation, bool) {
	if eval, ok := b.data[key]; ok {
		b.hits++
		return eval, true
	}
	b.misses++
	return engine.Evaluation{}, false
}

func (b *fakeBackend) Set(key Key, eval engine.Evaluation) {
	b.data[key] = eval
}

func (b *fakeBackend) Stats() Stats {
	return Stats{Hits: b.hits, Misses: b.misses, Size: len(b.data)}
}

// fakeEvaluator scores every position with the same value.
type fakeEvaluator struct {
	calls int
	value int
	err   error
	ready chan struct{}
}

func (e *fakeEvaluator) Evaluate(_ context.Context, _ string, depth int) (engine.Evaluation, error) {
	e.calls++
	if e.err != nil {
		return engine.Evaluation{}, e.err
	}
	return engine.Evaluation{Kind: engine.Centipawn, Value: e.value, Depth: depth}, nil
}

type readyEvaluator struct {
	fakeEvaluator
}

func (e *readyEvaluator) Ready() <-chan struct{} { return e.ready }

const (
	startFEN      = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	startFENLater = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 4 3"
)

func TestCache_MissThenHit(t *testing.T) {
	underlying := &fakeEvaluator{value: 25}
	backend := newFakeBackend()
	c := New(underlying, backend)
	ctx := context.Background()

	first, err := c.Evaluate(ctx, startFEN, 12)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	// Same position reached with different clocks.
	second, err := c.Evaluate(ctx, startFENLater, 12)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if underlying.calls != 1 {
		t.Errorf("underlying called %d times, want 1", underlying.calls)
	}
	if first != second {
		t.Errorf("cached evaluation = %+v, want %+v", second, first)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
	if stats.HitRate() != 50 {
		t.Errorf("HitRate() = %v, want 50", stats.HitRate())
	}
}

func TestCache_DepthIsPartOfKey(t *testing.T) {
	underlying := &fakeEvaluator{value: 10}
	c := New(underlying, newFakeBackend())
	ctx := context.Background()

	c.Evaluate(ctx, startFEN, 10)
	c.Evaluate(ctx, startFEN, 12)

	if underlying.calls != 2 {
		t.Errorf("underlying called %d times, want 2", underlying.calls)
	}
}

func TestCache_ErrorsNotCached(t *testing.T) {
	underlying := &fakeEvaluator{err: engine.ErrEvaluationTimeout}
	backend := newFakeBackend()
	c := New(underlying, backend)
	ctx := context.Background()

	if _, err := c.Evaluate(ctx, startFEN, 12); !errors.Is(err, engine.ErrEvaluationTimeout) {
		t.Fatalf("Evaluate() error = %v, want ErrEvaluationTimeout", err)
	}
	if len(backend.data) != 0 {
		t.Error("failed evaluation should not be cached")
	}

	underlying.err = nil
	if _, err := c.Evaluate(ctx, startFEN, 12); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if underlying.calls != 2 {
		t.Errorf("underlying called %d times, want 2", underlying.calls)
	}
}

func TestCache_InvalidFENPassesThrough(t *testing.T) {
	underlying := &fakeEvaluator{value: 1}
	backend := newFakeBackend()
	c := New(underlying, backend)

	c.Evaluate(context.Background(), "garbage", 12)
	if underlying.calls != 1 || len(backend.data) != 0 {
		t.Errorf("calls = %d, cached = %d", underlying.calls, len(backend.data))
	}
}

func TestCache_Ready(t *testing.T) {
	plain := New(&fakeEvaluator{}, newFakeBackend())
	select {
	case <-plain.Ready():
	default:
		t.Error("Ready() should be closed when the underlying evaluator has no signal")
	}

	ready := make(chan struct{})
	forwarded := New(&readyEvaluator{fakeEvaluator{ready: ready}}, newFakeBackend())
	select {
	case <-forwarded.Ready():
		t.Fatal("Ready() closed before the underlying evaluator is ready")
	default:
	}
	close(ready)
	select {
	case <-forwarded.Ready():
	default:
		t.Error("Ready() should follow the underlying evaluator")
	}
}
