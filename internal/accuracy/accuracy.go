// Package accuracy reduces a game's evaluations to a single accuracy
// percentage for one player.
//
// Accuracy follows the published approximation
//
//	accuracy = 103.1668 * exp(-0.04354 * averageLoss) - 3.1669
//
// clamped to [0, 100] and rounded to one decimal, where averageLoss is the
// mean centipawn loss over the player's own moves.
package accuracy

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/discochess/gameweek/internal/game"
)

const (
	scale  = 103.1668
	decay  = 0.04354
	offset = 3.1669
)

// Losses returns the centipawn loss of every move player made.
//
// evals[i] is the White-perspective evaluation of position i and movers[i]
// the side to move in it, so ply i leads from position i to position i+1.
// A move that improves the mover's position counts as zero loss.
func Losses(evals []int, movers []game.Color, player game.Color) []float64 {
	plies := len(evals) - 1
	if len(movers) < plies {
		plies = len(movers)
	}

	var losses []float64
	for i := 0; i < plies; i++ {
		if movers[i] != player {
			continue
		}
		delta := evals[i] - evals[i+1]
		if player == game.Black {
			delta = -delta
		}
		losses = append(losses, math.Max(0, float64(delta)))
	}
	return losses
}

// FromAverageLoss maps an average centipawn loss to an accuracy percentage.
func FromAverageLoss(avgLoss float64) float64 {
	a := scale*math.Exp(-decay*avgLoss) - offset
	a = math.Max(0, math.Min(100, a))
	return math.Round(a*10) / 10
}

// Score returns player's accuracy for the game. It reports false when the
// player made no moves, in which case the game cannot be scored.
func Score(evals []int, movers []game.Color, player game.Color) (float64, bool) {
	losses := Losses(evals, movers, player)
	if len(losses) == 0 {
		return 0, false
	}
	return FromAverageLoss(stat.Mean(losses, nil)), true
}
