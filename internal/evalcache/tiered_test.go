package evalcache

import (
	"testing"

	"github.com/discochess/gameweek/internal/engine"
)

func TestTiered(t *testing.T) {
	front, back := newFakeBackend(), newFakeBackend()
	cached := Key{Position: "8/8/8/8/8/8/8/8 w - -", Depth: 12}
	stored := Key{Position: "8/8/8/8/8/8/8/8 b - -", Depth: 12}
	front.Set(cached, engine.Evaluation{Value: 1})
	back.Set(stored, engine.Evaluation{Value: 2})
	tiered := NewTiered(front, back)

	if eval, ok := tiered.Get(cached); !ok || eval.Value != 1 {
		t.Errorf("Get(front) = %+v, %v", eval, ok)
	}
	if eval, ok := tiered.Get(stored); !ok || eval.Value != 2 {
		t.Errorf("Get(back) = %+v, %v", eval, ok)
	}
	if _, ok := front.data[stored]; !ok {
		t.Error("back hit should be copied to front")
	}
	if _, ok := tiered.Get(Key{Position: "missing", Depth: 12}); ok {
		t.Error("Get(missing) should miss")
	}

	tiered.Set(Key{Position: "new", Depth: 1}, engine.Evaluation{})
	if _, ok := back.data[Key{Position: "new", Depth: 1}]; ok {
		t.Error("Set should not write to back")
	}

	got := tiered.Stats()
	want := Stats{Hits: 2, Misses: 1, Size: 3}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}
