package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/discochess/gameweek/internal/engine"
	"github.com/discochess/gameweek/internal/fen"
)

var evalCmd = &cobra.Command{
	Use:   "eval [FEN]",
	Short: "Evaluate one position with the engine",
	Long: `Search a position to --depth and print the score from White's point
of view. Forced mates are reported as ±10000.

Examples:
  gameweek eval "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
  gameweek eval --depth 20 "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().DurationVar(&engineTimeout, "timeout", engine.DefaultTimeout, "evaluation timeout")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	position := args[0]
	if err := fen.Validate(position); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), engineTimeout+10*time.Second)
	defer cancel()

	eng, err := startEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	start := time.Now()
	ev, err := eng.Evaluate(ctx, position, depth)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	elapsed := time.Since(start)

	fmt.Printf("FEN:   %s\n", position)
	switch ev.Kind {
	case engine.Mate:
		fmt.Printf("Score: mate in %d (%+d)\n", ev.MateIn, ev.Value)
	default:
		fmt.Printf("Score: %+.2f\n", float64(ev.Value)/100)
	}
	fmt.Printf("Depth: %d\n", ev.Depth)
	if ev.BestMove != "" {
		fmt.Printf("Best:  %s\n", ev.BestMove)
	}
	fmt.Printf("Time:  %s\n", elapsed.Round(time.Millisecond))
	return nil
}
