// Package search implements binary search within sorted JSON Lines data.
//
// Every line is a JSON object whose first field is "position". Lines must
// be sorted by that field; several lines may share a position.
package search

import (
	"bytes"
	"sort"
)

const positionPrefix = `{"position":"`

// Lines splits data into lines, excluding empty lines.
func Lines(data []byte) [][]byte {
	n := bytes.Count(data, []byte{'\n'}) + 1
	lines := make([][]byte, 0, n)
	for len(data) > 0 {
		idx := bytes.IndexByte(data, '\n')
		var line []byte
		if idx < 0 {
			line = data
			data = nil
		} else {
			line = data[:idx]
			data = data[idx+1:]
		}
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}

// Find returns the run of lines whose position equals target, or nil.
// The result aliases lines.
func Find(lines [][]byte, target string) [][]byte {
	lo := sort.Search(len(lines), func(i int) bool {
		return Position(lines[i]) >= target
	})
	hi := lo
	for hi < len(lines) && Position(lines[hi]) == target {
		hi++
	}
	if lo == hi {
		return nil
	}
	return lines[lo:hi]
}

// Position extracts the position field from a line without decoding it.
// Positions are FENs and never contain JSON escapes.
func Position(line []byte) string {
	if !bytes.HasPrefix(line, []byte(positionPrefix)) {
		return ""
	}
	rest := line[len(positionPrefix):]
	end := bytes.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return string(rest[:end])
}
