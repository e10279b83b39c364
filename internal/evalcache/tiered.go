package evalcache

import "github.com/discochess/gameweek/internal/engine"

// Compile-time check that Tiered implements Backend.
var _ Backend = (*Tiered)(nil)

// Tiered reads from front, then from back. Evaluations found in back are
// copied to front. Writes go to front only.
type Tiered struct {
	front Backend
	back  Backend
}

// NewTiered layers front over back.
func NewTiered(front, back Backend) *Tiered {
	return &Tiered{front: front, back: back}
}

// Get looks up key in front, then back.
func (t *Tiered) Get(key Key) (engine.Evaluation, bool) {
	if eval, ok := t.front.Get(key); ok {
		return eval, true
	}
	eval, ok := t.back.Get(key)
	if ok {
		t.front.Set(key, eval)
	}
	return eval, ok
}

// Set stores eval in front.
func (t *Tiered) Set(key Key, eval engine.Evaluation) {
	t.front.Set(key, eval)
}

// Stats counts a lookup served by back as a hit. Size is the front size.
func (t *Tiered) Stats() Stats {
	f, b := t.front.Stats(), t.back.Stats()
	return Stats{
		Hits:   f.Hits + b.Hits,
		Misses: f.Misses - b.Hits,
		Size:   f.Size,
	}
}
