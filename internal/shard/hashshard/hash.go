// Package hashshard spreads positions uniformly across shards by hashing
// the normalized FEN.
package hashshard

import (
	"github.com/cespare/xxhash/v2"

	"github.com/discochess/gameweek/internal/fen"
	"github.com/discochess/gameweek/internal/shard"
)

// Name identifies this strategy in snapshot indexes.
const Name = "xxhash64"

// Strategy implements xxhash-based sharding.
type Strategy struct{}

// Ensure Strategy implements shard.Strategy.
var _ shard.Strategy = Strategy{}

// New creates a hash sharding strategy.
func New() Strategy {
	return Strategy{}
}

// Name returns the strategy name.
func (Strategy) Name() string {
	return Name
}

// ShardID hashes the normalized FEN. Invalid FENs are hashed as given.
func (Strategy) ShardID(position string, totalShards int) int {
	if totalShards <= 1 {
		return 0
	}
	norm, err := fen.Normalize(position)
	if err != nil {
		norm = position
	}
	return int(xxhash.Sum64String(norm) % uint64(totalShards))
}
