package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/notnil/chess"
	"github.com/spf13/cobra"

	"github.com/discochess/gameweek/internal/accuracy"
	"github.com/discochess/gameweek/internal/evalcache"
	"github.com/discochess/gameweek/internal/evalcache/cachestrategy/lru"
	"github.com/discochess/gameweek/internal/evalcache/memory"
	"github.com/discochess/gameweek/internal/game"
)

var scoreCmd = &cobra.Command{
	Use:   "score [PGN-FILE]",
	Short: "Score the games of a local PGN file",
	Long: `Evaluate every position of the games in a PGN file and print both
sides' accuracy. Positions repeated across games are searched once.

Examples:
  gameweek score ./games.pgn
  gameweek score --games 5 --depth 16 ./games.pgn`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

var scoreMaxGames int

func init() {
	scoreCmd.Flags().IntVar(&scoreMaxGames, "games", 10, "max games to score")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening PGN: %w", err)
	}
	defer f.Close()

	ctx := context.Background()
	eng, err := startEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	strategy, err := lru.New[evalcache.Key](100_000)
	if err != nil {
		return fmt.Errorf("creating evaluation cache: %w", err)
	}
	cache := evalcache.New(eng, memory.New(strategy, nil))

	scanner := chess.NewScanner(f)
	scored := 0
	start := time.Now()

	for scanner.Scan() && scored < scoreMaxGames {
		g := scanner.Next()
		scored++

		white := g.GetTagPair("White")
		black := g.GetTagPair("Black")
		fmt.Printf("\n=== Game %d: %s vs %s (%s) ===\n",
			scored, tagValue(white), tagValue(black), g.Outcome())

		positions := g.Positions()
		evals := make([]int, len(positions))
		movers := make([]game.Color, len(positions))
		failed := false
		for i, pos := range positions {
			ev, err := cache.Evaluate(ctx, pos.String(), depth)
			if err != nil {
				fmt.Printf("  ply %d: %v\n", i, err)
				failed = true
				break
			}
			evals[i] = ev.Value
			movers[i] = game.White
			if pos.Turn() == chess.Black {
				movers[i] = game.Black
			}
		}
		if failed {
			continue
		}

		for _, side := range []game.Color{game.White, game.Black} {
			acc, ok := accuracy.Score(evals, movers, side)
			if !ok {
				fmt.Printf("  %-5s  no moves\n", side)
				continue
			}
			fmt.Printf("  %-5s  %5.1f%%\n", side, acc)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading PGN: %w", err)
	}

	st := cache.Stats()
	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Games scored:  %d\n", scored)
	fmt.Printf("Cache hits:    %d (%.1f%%)\n", st.Hits, st.HitRate())
	fmt.Printf("Elapsed:       %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func tagValue(tp *chess.TagPair) string {
	if tp == nil {
		return "?"
	}
	return strings.TrimSpace(tp.Value)
}
