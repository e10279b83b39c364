package gameweek

import (
	"context"

	"github.com/discochess/gameweek/internal/chesscom"
	"github.com/discochess/gameweek/internal/engine"
	"github.com/discochess/gameweek/internal/game"
	"github.com/discochess/gameweek/internal/ratings"
	"github.com/discochess/gameweek/internal/scheduler"
)

// Record is one game of a tracked player. Its status and accuracy change
// while the tracker runs; read them through its methods.
type Record = game.Record

// Status is the analysis state of a Record.
type Status = game.Status

const (
	StatusPending   = game.StatusPending
	StatusAnalyzing = game.StatusAnalyzing
	StatusComplete  = game.StatusComplete
	StatusFailed    = game.StatusFailed
)

// Evaluation is an engine score from White's perspective.
type Evaluation = engine.Evaluation

// Progress counts analyzed games in the current refresh cycle.
type Progress = scheduler.Progress

// ProgressFunc receives progress updates.
type ProgressFunc = scheduler.ProgressFunc

// RatingPoint is a player's rating at the end of one day.
type RatingPoint = ratings.Point

// RatingSummary is the latest rating and its trend.
type RatingSummary = ratings.Summary

// Evaluator scores positions. The tracker calls it from a single
// goroutine.
type Evaluator interface {
	Evaluate(ctx context.Context, position string, depth int) (Evaluation, error)
}

// Source is the remote game and stats source.
type Source interface {
	Archives(ctx context.Context, username string) ([]string, error)
	Games(ctx context.Context, archiveURL string) ([]chesscom.Game, error)
	Stats(ctx context.Context, username string) (chesscom.Stats, error)
}

var _ Source = (*chesscom.Client)(nil)

// Player is a tracked player.
type Player struct {
	// ID is the lower-cased username.
	ID string
	// Name is the username as first added.
	Name string
}

// Summary is a player's week in the current time class.
type Summary struct {
	Player    Player
	TimeClass string

	// Games is most recent first.
	Games []*Record

	// Best and Worst are nil when fewer than one or two games carry an
	// accuracy, respectively.
	Best  *Record
	Worst *Record
}
