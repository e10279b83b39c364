package engine

import (
	"strconv"
	"strings"
)

// MateScore is the centipawn magnitude a forced mate is normalized to.
const MateScore = 10000

// Kind distinguishes centipawn scores from mate scores.
type Kind int

const (
	Centipawn Kind = iota
	Mate
)

// String returns "cp" or "mate".
func (k Kind) String() string {
	if k == Mate {
		return "mate"
	}
	return "cp"
}

// info is the subset of a UCI "info" line the client consumes.
type info struct {
	depth    int
	kind     Kind
	raw      int // as reported, relative to the side to move
	hasScore bool
}

// parseInfo parses a line of the form
//
//	info depth 12 seldepth 18 multipv 1 score cp 34 nodes 1234 pv e2e4 e7e5
//
// reporting false when line is not an info line.
func parseInfo(line string) (info, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return info{}, false
	}

	var in info
	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				if n, err := strconv.Atoi(fields[i+1]); err == nil {
					in.depth = n
				}
				i++
			}
		case "score":
			if i+2 >= len(fields) {
				return in, true
			}
			n, err := strconv.Atoi(fields[i+2])
			if err == nil {
				switch fields[i+1] {
				case "cp":
					in.kind, in.raw, in.hasScore = Centipawn, n, true
				case "mate":
					in.kind, in.raw, in.hasScore = Mate, n, true
				}
			}
			i += 2
		case "pv", "string":
			// The rest of the line is moves or free text.
			return in, true
		}
	}
	return in, true
}

// parseBestMove returns the move of a "bestmove" line.
func parseBestMove(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "bestmove" {
		return "", false
	}
	if len(fields) < 2 {
		return "", true
	}
	return fields[1], true
}

// whitePerspective converts a side-to-move score to White's point of view,
// collapsing mates to ±MateScore. "mate 0" means the side to move is mated.
func whitePerspective(kind Kind, raw int, whiteToMove bool) int {
	v := raw
	if kind == Mate {
		if raw > 0 {
			v = MateScore
		} else {
			v = -MateScore
		}
	}
	if !whiteToMove {
		v = -v
	}
	return v
}
