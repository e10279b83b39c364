// Package replay turns the move text of a game record into a sequence of
// board positions.
//
// Extraction is a deliberate approximation, not a rules-validating PGN
// parser. The grammar accepted per token is
//
//	castle := ("O-O" | "0-0") ["-O" | "-0"]
//	move   := [piece] [file] [rank] ["x" | ":"] square ["=" promo] ["e.p."]
//	piece  := "K" | "Q" | "R" | "B" | "N"
//	promo  := "Q" | "R" | "B" | "N"
//
// with trailing check, mate and "!?" annotations dropped. Header tags,
// {comments}, ;line comments, (variations), move numbers and $NAGs are
// skipped. A game-result token ends extraction; so does the first token
// that fits none of the above, in which case the moves read so far are
// returned.
package replay

import (
	"regexp"
	"strings"

	"github.com/notnil/chess"
)

// Castle identifies a castling move.
type Castle int

const (
	NoCastle Castle = iota
	KingSide
	QueenSide
)

// Move is one half-move as written in the move text.
type Move struct {
	// SAN is the token with move number and annotations removed.
	SAN string

	// Piece is the moving piece, or chess.NoPieceType when the token names none.
	Piece chess.PieceType

	// FromFile and FromRank are disambiguation hints, zero when absent.
	FromFile byte
	FromRank byte

	// To is the destination square, e.g. "e4". Empty for castles.
	To string

	Capture   bool
	Promotion chess.PieceType
	Castle    Castle
}

var (
	sanPattern     = regexp.MustCompile(`^([KQRBN])?([a-h])?([1-8])?([x:])?([a-h][1-8])(?:=?([QRBNqrbn]))?(?:e\.p\.)?$`)
	moveNumberExpr = regexp.MustCompile(`^\d+\.+`)
	nagPattern     = regexp.MustCompile(`^\$\d+$`)
)

var pieceLetters = map[byte]chess.PieceType{
	'K': chess.King,
	'Q': chess.Queen,
	'R': chess.Rook,
	'B': chess.Bishop,
	'N': chess.Knight,
}

// ExtractMoves tokenizes move text into half-moves.
func ExtractMoves(moveText string) []Move {
	var moves []Move
	for _, word := range strings.Fields(stripNonMoves(moveText)) {
		word = strings.TrimLeft(moveNumberExpr.ReplaceAllString(word, ""), ".")
		if word == "" || nagPattern.MatchString(word) {
			continue
		}
		if isResult(word) {
			break
		}
		mv, ok := parseToken(word)
		if !ok {
			break
		}
		moves = append(moves, mv)
	}
	return moves
}

// parseToken parses a single move token.
func parseToken(tok string) (Move, bool) {
	tok = strings.TrimRight(tok, "+#!?")
	if tok == "" {
		return Move{}, false
	}

	switch strings.ReplaceAll(tok, "0", "O") {
	case "O-O":
		return Move{SAN: "O-O", Castle: KingSide}, true
	case "O-O-O":
		return Move{SAN: "O-O-O", Castle: QueenSide}, true
	}

	m := sanPattern.FindStringSubmatch(tok)
	if m == nil {
		return Move{}, false
	}

	mv := Move{SAN: tok, To: m[5], Capture: m[4] != ""}
	if m[1] != "" {
		mv.Piece = pieceLetters[m[1][0]]
	}
	if m[2] != "" {
		mv.FromFile = m[2][0]
	}
	if m[3] != "" {
		mv.FromRank = m[3][0]
	}
	if m[6] != "" {
		mv.Promotion = pieceLetters[strings.ToUpper(m[6])[0]]
	}
	return mv, true
}

func isResult(tok string) bool {
	switch tok {
	case "1-0", "0-1", "1/2-1/2", "½-½", "*":
		return true
	}
	return false
}

// stripNonMoves removes header tags, comments and variations, replacing
// each with a space so neighbouring tokens stay separated.
func stripNonMoves(text string) string {
	var (
		b         strings.Builder
		braces    int
		parens    int
		inTag     bool
		inComment bool
	)
	b.Grow(len(text))

	for _, r := range text {
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
				b.WriteByte(' ')
			}
		case braces > 0:
			if r == '}' {
				braces--
				if braces == 0 {
					b.WriteByte(' ')
				}
			}
		case inTag:
			if r == ']' {
				inTag = false
				b.WriteByte(' ')
			}
		case r == '{':
			braces++
		case r == '[':
			inTag = true
		case r == ';':
			inComment = true
		case r == '(':
			parens++
		case r == ')':
			if parens > 0 {
				parens--
			}
			if parens == 0 {
				b.WriteByte(' ')
			}
		case parens > 0:
			// Inside a variation.
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
