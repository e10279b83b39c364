// Package cachestrategy defines cache eviction strategy interfaces.
package cachestrategy

import "github.com/discochess/gameweek/internal/engine"

// Strategy defines the interface for cache eviction strategies.
type Strategy[K comparable] interface {
	Get(key K) (engine.Evaluation, bool)
	Add(key K, value engine.Evaluation) bool
	Len() int

	// Keys returns the keys from oldest to newest.
	Keys() []K

	// Peek returns a value without updating its recency.
	Peek(key K) (engine.Evaluation, bool)
}
