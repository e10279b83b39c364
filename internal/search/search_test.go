package search

import (
	"testing"
)

const (
	endgame = "8/8/8/4k3/8/8/4K3/4R3 w - -"
	italian = "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq -"
	start   = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -"
)

// Sorted by position, then depth.
var data = []byte(`{"position":"8/8/8/4k3/8/8/4K3/4R3 w - -","depth":12,"kind":"cp","value":500}
{"position":"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq -","depth":10,"kind":"cp","value":20}
{"position":"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq -","depth":12,"kind":"cp","value":25}

{"position":"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -","depth":12,"kind":"cp","value":20}
`)

func TestLines(t *testing.T) {
	if got := len(Lines(data)); got != 4 {
		t.Errorf("len(Lines()) = %d, want 4", got)
	}
	if got := Lines(nil); len(got) != 0 {
		t.Errorf("Lines(nil) = %q, want empty", got)
	}
	if got := len(Lines([]byte(`{"position":"x"}`))); got != 1 {
		t.Errorf("unterminated line: len(Lines()) = %d, want 1", got)
	}
}

func TestFind(t *testing.T) {
	lines := Lines(data)

	tests := []struct {
		name     string
		position string
		want     int
	}{
		{name: "first line", position: endgame, want: 1},
		{name: "several depths", position: italian, want: 2},
		{name: "last line", position: start, want: 1},
		{name: "not found", position: "8/8/8/8/8/8/8/4K2k w - -", want: 0},
		{name: "sorts after everything", position: "zzz", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Find(lines, tt.position)
			if len(got) != tt.want {
				t.Fatalf("Find() returned %d lines, want %d", len(got), tt.want)
			}
			for _, line := range got {
				if p := Position(line); p != tt.position {
					t.Errorf("matched line has position %q", p)
				}
			}
		})
	}
}

func TestFind_Empty(t *testing.T) {
	if got := Find(nil, start); got != nil {
		t.Errorf("Find(nil) = %q, want nil", got)
	}
}

func TestPosition(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{`{"position":"8/8/8/8 w - -","depth":1}`, "8/8/8/8 w - -"},
		{`{"depth":1,"position":"8/8/8/8 w - -"}`, ""},
		{`{"position":"unterminated`, ""},
		{``, ""},
	}
	for _, tt := range tests {
		if got := Position([]byte(tt.line)); got != tt.want {
			t.Errorf("Position(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}
