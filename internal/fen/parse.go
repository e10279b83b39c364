// Package fen provides FEN (Forsyth-Edwards Notation) helpers used to key
// cached evaluations and to orient engine scores.
package fen

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidFEN indicates the FEN string is malformed.
var ErrInvalidFEN = errors.New("invalid FEN notation")

// Normalize returns the position, side to move, castling rights and en
// passant square of a FEN, dropping the halfmove clock and fullmove number.
// Positions that differ only in their clocks evaluate the same.
func Normalize(fen string) (string, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return "", ErrInvalidFEN
	}
	if !isValidPiecePlacement(parts[0]) {
		return "", ErrInvalidFEN
	}
	if parts[1] != "w" && parts[1] != "b" {
		return "", ErrInvalidFEN
	}
	return strings.Join(parts[:4], " "), nil
}

// WhiteToMove reports whether White is to move in the position.
func WhiteToMove(fen string) (bool, error) {
	parts := strings.Fields(fen)
	if len(parts) < 2 {
		return false, ErrInvalidFEN
	}
	switch parts[1] {
	case "w":
		return true, nil
	case "b":
		return false, nil
	default:
		return false, ErrInvalidFEN
	}
}

// Validate checks that fen carries all six fields an engine expects.
func Validate(fen string) error {
	parts := strings.Fields(fen)
	if len(parts) != 6 {
		return ErrInvalidFEN
	}
	if !isValidPiecePlacement(parts[0]) {
		return ErrInvalidFEN
	}
	if parts[1] != "w" && parts[1] != "b" {
		return ErrInvalidFEN
	}
	if !isValidCastling(parts[2]) {
		return ErrInvalidFEN
	}
	if !isValidEnPassant(parts[3]) {
		return ErrInvalidFEN
	}
	if n, err := strconv.Atoi(parts[4]); err != nil || n < 0 {
		return ErrInvalidFEN
	}
	if n, err := strconv.Atoi(parts[5]); err != nil || n < 1 {
		return ErrInvalidFEN
	}
	return nil
}

// isValidPiecePlacement validates the piece placement part of a FEN.
func isValidPiecePlacement(placement string) bool {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return false
	}

	for _, rank := range ranks {
		squares := 0
		for _, ch := range rank {
			switch {
			case ch >= '1' && ch <= '8':
				squares += int(ch - '0')
			case strings.ContainsRune("PNBRQKpnbrqk", ch):
				squares++
			default:
				return false
			}
		}
		if squares != 8 {
			return false
		}
	}

	return true
}

func isValidCastling(s string) bool {
	if s == "-" {
		return true
	}
	if s == "" || len(s) > 4 {
		return false
	}
	for _, ch := range s {
		if !strings.ContainsRune("KQkq", ch) {
			return false
		}
	}
	return true
}

func isValidEnPassant(s string) bool {
	if s == "-" {
		return true
	}
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && (s[1] == '3' || s[1] == '6')
}
