package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discochess/gameweek"
	"github.com/discochess/gameweek/internal/scheduler"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Review the past week of every player once",
	Long: `Fetch each player's games of the past seven days, score the games
chess.com has not reviewed and print every game with the week's best and
worst.

Examples:
  gameweek analyze -p hikaru -t rapid
  gameweek analyze -p hikaru,alireza2003 --report-dir ./reports --json
  gameweek analyze -p hikaru --eval-dir ~/.cache/gameweek`,
	RunE: runAnalyze,
}

var (
	analyzeJSON        bool
	analyzeReportDir   string
	analyzeCompression string
	analyzeTimeout     time.Duration
)

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output results as JSON")
	analyzeCmd.Flags().StringVar(&analyzeReportDir, "report-dir", "", "also publish reports to this directory, gs://bucket/prefix or s3://bucket/prefix")
	analyzeCmd.Flags().StringVar(&analyzeCompression, "compression", "zstd", "report and evaluation compression: zstd, gzip or none")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 30*time.Minute, "give up after this long")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := requirePlayers(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	// Handle interrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nInterrupted, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	eng, err := startEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	opts := []gameweek.Option{
		gameweek.WithEvaluator(eng),
		gameweek.WithTimeClass(timeClass),
		gameweek.WithDepth(depth),
		gameweek.WithLogger(logger),
	}
	if !analyzeJSON {
		opts = append(opts, gameweek.WithProgress(scheduler.WriterProgressFunc(os.Stderr)))
	}
	if analyzeReportDir != "" {
		opt, err := gameweek.WithReportLocation(ctx, analyzeReportDir, analyzeCompression)
		if err != nil {
			return err
		}
		opts = append(opts, opt)
	}
	if evalDir != "" {
		opt, err := gameweek.WithEvalSnapshotLocation(ctx, evalDir, analyzeCompression)
		if err != nil {
			return err
		}
		opts = append(opts, opt)
	}

	tracker, err := gameweek.New(opts...)
	if err != nil {
		return fmt.Errorf("creating tracker: %w", err)
	}
	defer tracker.Close()

	if evalDir != "" {
		n, err := tracker.LoadEvalSnapshot(ctx)
		if err != nil {
			logger.Warn("evaluation snapshot not loaded", zap.Error(err))
		} else if !analyzeJSON {
			fmt.Fprintf(os.Stderr, "Loaded %d stored evaluations\n", n)
		}
	}

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	go tracker.Run(runCtx)

	for _, name := range players {
		if _, err := tracker.AddPlayer(ctx, name); err != nil {
			return err
		}
	}
	if err := tracker.WaitIdle(ctx); err != nil {
		return fmt.Errorf("waiting for analysis: %w", err)
	}
	if evalDir != "" {
		if _, err := tracker.SaveEvalSnapshot(ctx); err != nil {
			logger.Warn("saving evaluation snapshot failed", zap.Error(err))
		}
	}

	weeks := make([]gameweek.Summary, 0, len(players))
	for _, p := range tracker.Players() {
		week, err := tracker.Weekly(ctx, p.ID)
		if err != nil {
			return err
		}
		weeks = append(weeks, week)
	}

	if analyzeReportDir != "" {
		runID, err := tracker.Publish(ctx)
		if err != nil {
			return fmt.Errorf("publishing reports: %w", err)
		}
		if !analyzeJSON {
			fmt.Fprintf(os.Stderr, "Published reports to %s (run %s)\n", analyzeReportDir, runID)
		}
	}

	if analyzeJSON {
		return printWeeksJSON(os.Stdout, weeks)
	}
	printWeeksText(os.Stdout, weeks)
	return nil
}

func printWeeksText(w io.Writer, weeks []gameweek.Summary) {
	for _, week := range weeks {
		fmt.Fprintf(w, "\n=== %s · %s ===\n", week.Player.Name, week.TimeClass)
		if len(week.Games) == 0 {
			fmt.Fprintf(w, "No %s games in the past week.\n", week.TimeClass)
			continue
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, g := range week.Games {
			mark := ""
			switch g {
			case week.Best:
				mark = "best"
			case week.Worst:
				mark = "worst"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\tvs %s (%d)\t%s\t%s\n",
				g.EndTime.Local().Format("Mon 15:04"),
				g.PlayerColor, g.Result, g.OpponentName, g.OpponentRating,
				g.Badge(), mark)
		}
		tw.Flush()
	}
}

type gameJSON struct {
	ID       string   `json:"id"`
	EndTime  string   `json:"end_time"`
	Color    string   `json:"color"`
	Result   string   `json:"result"`
	Opponent string   `json:"opponent"`
	Status   string   `json:"status"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

type weekJSON struct {
	Player    string     `json:"player"`
	TimeClass string     `json:"time_class"`
	Best      *gameJSON  `json:"best,omitempty"`
	Worst     *gameJSON  `json:"worst,omitempty"`
	Games     []gameJSON `json:"games"`
}

func toGameJSON(g *gameweek.Record) gameJSON {
	out := gameJSON{
		ID:       g.ID,
		EndTime:  g.EndTime.UTC().Format(time.RFC3339),
		Color:    g.PlayerColor.String(),
		Result:   string(g.Result),
		Opponent: g.OpponentName,
		Status:   g.Status().String(),
	}
	if acc, ok := g.Accuracy(); ok {
		out.Accuracy = &acc
	}
	return out
}

func printWeeksJSON(w io.Writer, weeks []gameweek.Summary) error {
	out := make([]weekJSON, 0, len(weeks))
	for _, week := range weeks {
		wj := weekJSON{
			Player:    week.Player.ID,
			TimeClass: week.TimeClass,
			Games:     make([]gameJSON, 0, len(week.Games)),
		}
		for _, g := range week.Games {
			wj.Games = append(wj.Games, toGameJSON(g))
		}
		if week.Best != nil {
			b := toGameJSON(week.Best)
			wj.Best = &b
		}
		if week.Worst != nil {
			b := toGameJSON(week.Worst)
			wj.Worst = &b
		}
		out = append(out, wj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
