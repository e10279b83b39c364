package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/discochess/gameweek/internal/report"
	"github.com/discochess/gameweek/internal/store"
	"github.com/discochess/gameweek/internal/store/storeurl"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show published weekly reports",
	Long: `Read reports written by "analyze --report-dir" or "watch --report-dir"
back from storage and print them. Each report is decoded with the
compression recorded in the manifest.

Examples:
  gameweek report --from ./reports -p hikaru
  gameweek report --from gs://my-bucket/gameweek -p hikaru -t rapid --week 2024-W23
  gameweek report --from s3://my-bucket/gameweek -p hikaru,firouzja2003 --json`,
	RunE: runReport,
}

var (
	reportFrom string
	reportWeek string
	reportJSON bool
)

func init() {
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "report location: directory, gs://bucket/prefix or s3://bucket/prefix")
	reportCmd.Flags().StringVar(&reportWeek, "week", "", "ISO week such as 2024-W23 (default: latest published)")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the stored reports as JSON")
	_ = reportCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := requirePlayers(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := storeurl.Open(ctx, reportFrom)
	if err != nil {
		return err
	}
	defer st.Close()

	reports, err := loadReports(ctx, st, players, timeClass, reportWeek)
	if err != nil {
		return err
	}
	if reportJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	printReportsText(os.Stdout, reports)
	return nil
}

// loadReports reads each player's report. Players without one are
// skipped; any other failure aborts.
func loadReports(ctx context.Context, st store.Store, names []string, tc, week string) ([]report.Report, error) {
	out := make([]report.Report, 0, len(names))
	for _, name := range names {
		e, err := report.Lookup(ctx, st, name, tc, week)
		if errors.Is(err, report.ErrNotPublished) {
			logger.Warn(err.Error())
			continue
		}
		if err != nil {
			return nil, err
		}
		r, err := report.Load(ctx, st, e)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func printReportsText(w io.Writer, reports []report.Report) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No published reports.")
		return
	}
	for _, r := range reports {
		fmt.Fprintf(w, "\n=== %s · %s · %s ===\n", r.Player, r.TimeClass, r.Week)
		fmt.Fprintf(w, "Generated %s, run %s\n", r.GeneratedAt.Local().Format(time.DateTime), r.RunID)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "games\t%d\n", r.Games)
		fmt.Fprintf(tw, "analyzed\t%d\n", r.Analyzed)
		fmt.Fprintf(tw, "failed\t%d\n", r.Failed)
		if r.MeanAccuracy != nil {
			fmt.Fprintf(tw, "mean accuracy\t%.1f%%\n", *r.MeanAccuracy)
		}
		for _, row := range []struct {
			label string
			g     *report.Game
		}{{"best", r.Best}, {"worst", r.Worst}} {
			if row.g == nil || row.g.Accuracy == nil {
				continue
			}
			fmt.Fprintf(tw, "%s\t%.1f%%\tvs %s (%d)\t%s\n",
				row.label, *row.g.Accuracy, row.g.Opponent, row.g.OpponentRating, row.g.Result)
		}
		tw.Flush()
	}
}
