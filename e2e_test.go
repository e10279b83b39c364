//go:build e2e

package gameweek_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/discochess/gameweek"
	"github.com/discochess/gameweek/internal/engine"
	"github.com/discochess/gameweek/internal/replay"
)

// startEngine launches the UCI binary named by GAMEWEEK_ENGINE.
func startEngine(t *testing.T) *engine.Client {
	t.Helper()
	path := os.Getenv("GAMEWEEK_ENGINE")
	if path == "" {
		t.Skip("Skipping: GAMEWEEK_ENGINE not set")
	}

	proc, err := engine.StartProcess(path)
	if err != nil {
		t.Fatalf("StartProcess() error = %v", err)
	}
	client := engine.New(proc, engine.WithSetOption("Threads", "1"))
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := client.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}
	return client
}

func TestE2E_EngineScoresReplayedGame(t *testing.T) {
	client := startEngine(t)
	ctx := context.Background()

	// Scholar's mate: White's last move mates.
	positions := replay.FromText("1. e4 e5 2. Bc4 Nc6 3. Qh5 Nf6 4. Qxf7#")
	if len(positions) != 8 {
		t.Fatalf("replayed %d positions, want 8", len(positions))
	}

	start := time.Now()
	for i, p := range positions[:len(positions)-1] {
		ev, err := client.Evaluate(ctx, p.FEN, 8)
		if err != nil {
			t.Fatalf("ply %d: Evaluate() error = %v", i, err)
		}
		t.Logf("ply %d  %-8s %6d  depth %d  best %s", i, ev.Kind, ev.Value, ev.Depth, ev.BestMove)
	}
	t.Logf("evaluated %d positions in %v", len(positions)-1, time.Since(start))

	// After 3...Nf6 White mates in one.
	ev, err := client.Evaluate(ctx, positions[6].FEN, 8)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if ev.Kind != engine.Mate || ev.Value != engine.MateScore {
		t.Errorf("mate-in-one = %+v, want +%d mate", ev, engine.MateScore)
	}
}

func TestE2E_TrackerLiveAccount(t *testing.T) {
	player := os.Getenv("GAMEWEEK_E2E_PLAYER")
	if player == "" {
		t.Skip("Skipping: GAMEWEEK_E2E_PLAYER not set")
	}
	client := startEngine(t)

	tr, err := gameweek.New(
		gameweek.WithEvaluator(client),
		gameweek.WithDepth(8),
		gameweek.WithTimeClass(os.Getenv("GAMEWEEK_E2E_TIME_CLASS")),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	go tr.Run(ctx)

	if _, err := tr.AddPlayer(ctx, player); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}
	if err := tr.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle() error = %v", err)
	}

	week, err := tr.Weekly(ctx, player)
	if err != nil {
		t.Fatalf("Weekly() error = %v", err)
	}
	t.Logf("%s: %d %s games this week", player, len(week.Games), week.TimeClass)
	for _, g := range week.Games {
		t.Logf("  %s  %-6s %-5s vs %-20s %s", g.EndTime.Format(time.DateOnly), g.PlayerColor, g.Result, g.OpponentName, g.Badge())
		if g.Status() == gameweek.StatusPending || g.Status() == gameweek.StatusAnalyzing {
			t.Errorf("%s still %v after WaitIdle", g.ID, g.Status())
		}
	}
}
