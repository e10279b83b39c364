package accuracy

import (
	"math"
	"testing"

	"github.com/discochess/gameweek/internal/game"
)

// alternating returns the side to move for n positions starting with White.
func alternating(n int) []game.Color {
	movers := make([]game.Color, n)
	for i := range movers {
		if i%2 == 1 {
			movers[i] = game.Black
		}
	}
	return movers
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		evals  []int
		player game.Color
		want   float64
		wantOK bool
	}{
		{
			name:   "no losses for white",
			evals:  []int{0, 30, 25, 40},
			player: game.White,
			want:   100.0,
			wantOK: true,
		},
		{
			name:   "no losses for black",
			evals:  []int{0, 30, 25, 40},
			player: game.Black,
			want:   100.0,
			wantOK: true,
		},
		{
			name:   "white blunders",
			evals:  []int{20, 20, 20, 0},
			player: game.White,
			// losses 0 and 20, mean 10.
			want:   63.6,
			wantOK: true,
		},
		{
			name:   "black loses ground",
			evals:  []int{0, 0, 50, 50},
			player: game.Black,
			// Black's single move takes White from 0 to 50.
			want:   8.5,
			wantOK: true,
		},
		{
			name:   "delivering mate is lossless",
			evals:  []int{0, 0, -10000},
			player: game.Black,
			want:   100.0,
			wantOK: true,
		},
		{
			name:   "allowing mate bottoms out",
			evals:  []int{0, -10000},
			player: game.White,
			want:   0,
			wantOK: true,
		},
		{
			name:   "player never moved",
			evals:  []int{0, 25},
			player: game.Black,
			wantOK: false,
		},
		{
			name:   "single position",
			evals:  []int{15},
			player: game.White,
			wantOK: false,
		},
		{
			name:   "empty",
			evals:  nil,
			player: game.White,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Score(tt.evals, alternating(len(tt.evals)), tt.player)
			if ok != tt.wantOK {
				t.Fatalf("Score() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromAverageLoss(t *testing.T) {
	tests := []struct {
		loss float64
		want float64
	}{
		{0, 100.0},
		{10, 63.6},
		{50, 8.5},
		{1000, 0},
	}

	for _, tt := range tests {
		if got := FromAverageLoss(tt.loss); got != tt.want {
			t.Errorf("FromAverageLoss(%v) = %v, want %v", tt.loss, got, tt.want)
		}
	}
}

func TestScore_Bounded(t *testing.T) {
	// Arbitrary eval swings, including mates, always land in [0, 100] with
	// one decimal.
	evals := []int{0, 350, -10000, 10000, -75, 40, 9999, -3, 0, 120, -10000}
	for _, player := range []game.Color{game.White, game.Black} {
		got, ok := Score(evals, alternating(len(evals)), player)
		if !ok {
			t.Fatalf("Score(%v) not scoreable", player)
		}
		if got < 0 || got > 100 {
			t.Errorf("Score(%v) = %v, out of range", player, got)
		}
		if math.Abs(got*10-math.Round(got*10)) > 1e-9 {
			t.Errorf("Score(%v) = %v, not rounded to one decimal", player, got)
		}
	}
}

func TestLosses_NeverNegative(t *testing.T) {
	evals := []int{0, 200, -50, 300, 300, -400}
	movers := alternating(len(evals))

	for _, player := range []game.Color{game.White, game.Black} {
		for i, l := range Losses(evals, movers, player) {
			if l < 0 {
				t.Errorf("%v loss %d = %v, want >= 0", player, i, l)
			}
		}
	}

	white := Losses(evals, movers, game.White)
	want := []float64{0, 0, 700}
	if len(white) != len(want) {
		t.Fatalf("white losses = %v, want %v", white, want)
	}
	for i := range want {
		if white[i] != want[i] {
			t.Errorf("white loss %d = %v, want %v", i, white[i], want[i])
		}
	}
}
