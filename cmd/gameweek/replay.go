package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/discochess/gameweek/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay [MOVES]",
	Short: "Print the position after every ply of a move list",
	Long: `Replay SAN or coordinate move text and print one FEN per position,
starting with the initial position. Move numbers, comments, variations,
annotations and clock tags are ignored. Replay stops at the first move that
cannot be played.

With no argument, move text is read from standard input.

Examples:
  gameweek replay "1. e4 e5 2. Nf3 Nc6 3. Bb5"
  curl -s https://api.chess.com/pub/player/hikaru/games/2024/06 | jq -r '.games[0].pgn' | gameweek replay`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	text := ""
	if len(args) == 1 {
		text = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	}

	moves := replay.ExtractMoves(text)
	positions := replay.Replay(moves)

	for i, p := range positions {
		move := "start"
		if i > 0 {
			move = moves[i-1].SAN
		}
		fmt.Printf("%3d  %-7s %s\n", i, move, p.FEN)
	}
	if played := len(positions) - 1; played < len(moves) {
		fmt.Fprintf(os.Stderr, "stopped at ply %d: %s is illegal or ambiguous\n",
			played+1, moves[played].SAN)
	}
	return nil
}
