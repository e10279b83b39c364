package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/discochess/gameweek"
	"github.com/discochess/gameweek/internal/engine"
)

var (
	// Global flags.
	enginePath string
	players    []string
	timeClass  string
	depth      int
	threads    int
	hashMB     int
	verbose    bool
	evalDir    string

	// engineTimeout overrides the per-evaluation timeout when positive.
	engineTimeout time.Duration

	logger *zap.Logger
)

// envFallbacks maps persistent flags to the environment variables read
// when the flag is not given.
var envFallbacks = map[string]string{
	"engine":     "GAMEWEEK_ENGINE",
	"players":    "GAMEWEEK_PLAYERS",
	"time-class": "GAMEWEEK_TIME_CLASS",
	"depth":      "GAMEWEEK_DEPTH",
	"threads":    "GAMEWEEK_THREADS",
	"hash":       "GAMEWEEK_HASH",
	"eval-dir":   "GAMEWEEK_EVAL_DIR",
}

var rootCmd = &cobra.Command{
	Use:   "gameweek",
	Short: "Find each player's best and worst chess game of the week",
	Long: `Gameweek fetches tracked players' games of the past seven days from
chess.com, scores every game with a UCI engine and reports each player's
most and least accurate game.

Games chess.com has already reviewed keep the site's accuracy; the rest are
replayed and evaluated position by position.

Settings may also come from the environment or a .env file
(GAMEWEEK_ENGINE, GAMEWEEK_PLAYERS, GAMEWEEK_TIME_CLASS, GAMEWEEK_DEPTH,
GAMEWEEK_EVAL_DIR).

Examples:
  # Review two players' blitz week
  gameweek analyze --engine stockfish --players hikaru,magnuscarlsen

  # Keep refreshing every 10 minutes and serve metrics
  gameweek watch --schedule "@every 10m" --metrics-addr :9090

  # Print the positions of a move list
  gameweek replay "1. e4 e5 2. Nf3 Nc6"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(cmd.Flags()); err != nil {
			return err
		}
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&enginePath, "engine", "stockfish", "UCI engine binary")
	flags.StringSliceVarP(&players, "players", "p", nil, "chess.com usernames, comma separated")
	flags.StringVarP(&timeClass, "time-class", "t", gameweek.DefaultTimeClass, "time class: bullet, blitz, rapid or daily")
	flags.IntVar(&depth, "depth", 12, "engine search depth per position")
	flags.IntVar(&threads, "threads", 1, "engine Threads option")
	flags.IntVar(&hashMB, "hash", 16, "engine Hash option in MB")
	flags.StringVar(&evalDir, "eval-dir", "", "keep engine evaluations between runs in this directory, gs://bucket/prefix or s3://bucket/prefix")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// loadEnv reads .env if present and fills unset flags from the
// environment.
func loadEnv(flags *pflag.FlagSet) error {
	// A missing .env is normal.
	_ = godotenv.Load()

	for name, key := range envFallbacks {
		f := flags.Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := f.Value.Set(v); err != nil {
			return fmt.Errorf("%s=%q: %w", key, v, err)
		}
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// engineOptions returns the setoption pairs built from the engine flags.
func engineOptions() map[string]string {
	return map[string]string{
		"Threads": strconv.Itoa(threads),
		"Hash":    strconv.Itoa(hashMB),
	}
}

// startEngine launches the engine and waits for its handshake.
func startEngine(ctx context.Context) (*engine.Client, error) {
	proc, err := engine.StartProcess(enginePath)
	if err != nil {
		return nil, fmt.Errorf("starting engine %q: %w", enginePath, err)
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	if engineTimeout > 0 {
		opts = append(opts, engine.WithTimeout(engineTimeout))
	}
	setopts := engineOptions()
	for _, name := range []string{"Threads", "Hash"} {
		opts = append(opts, engine.WithSetOption(name, setopts[name]))
	}
	client := engine.New(proc, opts...)

	if err := client.Start(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("starting engine session: %w", err)
	}
	if err := client.WaitReady(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("waiting for engine: %w", err)
	}
	return client, nil
}

func requirePlayers() error {
	if len(players) == 0 {
		return fmt.Errorf("no players given; use --players or GAMEWEEK_PLAYERS")
	}
	return nil
}
