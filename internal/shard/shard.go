// Package shard defines how evaluation snapshots spread positions across
// shard files.
package shard

// Strategy maps a position to a shard.
type Strategy interface {
	// Name is recorded in the snapshot index so a reader picks the same
	// strategy the writer used.
	Name() string

	// ShardID returns a shard in [0, totalShards). Positions that differ
	// only in their move clocks map to the same shard.
	ShardID(fen string, totalShards int) int
}
