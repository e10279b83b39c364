// Package evalcache memoizes engine evaluations so positions shared between
// games (openings, transpositions) are searched once.
package evalcache

import "github.com/discochess/gameweek/internal/engine"

// Key identifies an evaluation: a normalized FEN searched to a depth.
type Key struct {
	Position string
	Depth    int
}

// Backend defines the interface for cache storage backends.
// Implementations handle storage and eviction strategy.
type Backend interface {
	// Get retrieves a cached evaluation.
	Get(key Key) (engine.Evaluation, bool)

	// Set stores an evaluation.
	Set(key Key, eval engine.Evaluation)

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int // Current number of entries
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}
