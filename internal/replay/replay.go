package replay

import (
	"github.com/notnil/chess"

	"github.com/discochess/gameweek/internal/game"
)

// Position is a board state reached during replay.
type Position struct {
	// FEN is the complete six-field FEN of the position.
	FEN string

	// Turn is the side to move.
	Turn game.Color
}

// Replay plays moves from the standard starting position.
//
// The result holds the starting position followed by one position per
// applied move. Replay stops at the first move that does not resolve to
// exactly one legal move, so the result may be shorter than len(moves)+1.
func Replay(moves []Move) []Position {
	pos := chess.NewGame().Position()
	positions := make([]Position, 0, len(moves)+1)
	positions = append(positions, toPosition(pos))

	for _, mv := range moves {
		m, ok := resolve(pos, mv)
		if !ok {
			break
		}
		pos = pos.Update(m)
		positions = append(positions, toPosition(pos))
	}
	return positions
}

// FromText extracts moves from text and replays them.
func FromText(moveText string) []Position {
	return Replay(ExtractMoves(moveText))
}

func toPosition(pos *chess.Position) Position {
	turn := game.White
	if pos.Turn() == chess.Black {
		turn = game.Black
	}
	return Position{FEN: pos.String(), Turn: turn}
}

// resolve finds the single legal move described by mv.
func resolve(pos *chess.Position, mv Move) (*chess.Move, bool) {
	var found *chess.Move
	for _, m := range pos.ValidMoves() {
		if !matches(pos, m, mv) {
			continue
		}
		if found != nil {
			// Ambiguous.
			return nil, false
		}
		found = m
	}
	return found, found != nil
}

func matches(pos *chess.Position, m *chess.Move, mv Move) bool {
	switch mv.Castle {
	case KingSide:
		return m.HasTag(chess.KingSideCastle)
	case QueenSide:
		return m.HasTag(chess.QueenSideCastle)
	}

	if m.S2().String() != mv.To {
		return false
	}

	from := m.S1().String()
	if mv.FromFile != 0 && from[0] != mv.FromFile {
		return false
	}
	if mv.FromRank != 0 && from[1] != mv.FromRank {
		return false
	}

	piece := pos.Board().Piece(m.S1()).Type()
	switch {
	case mv.Piece != chess.NoPieceType:
		if piece != mv.Piece {
			return false
		}
	case mv.FromFile != 0 && mv.FromRank != 0:
		// Coordinate form ("g1f3"): the origin square names the piece.
	default:
		if piece != chess.Pawn {
			return false
		}
	}

	if mv.Promotion != chess.NoPieceType {
		return m.Promo() == mv.Promotion
	}
	// An unmarked promotion is taken as a queen.
	return m.Promo() == chess.NoPieceType || m.Promo() == chess.Queen
}
