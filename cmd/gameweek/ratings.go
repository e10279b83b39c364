package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/discochess/gameweek/internal/chesscom"
	"github.com/discochess/gameweek/internal/ratings"
)

var ratingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "Show each player's rating and trend",
	Long: `Print each player's current rating in the time class, the change since
the previous day played and the least-squares trend over the history.

Examples:
  gameweek ratings -p hikaru,firouzja2003 -t blitz
  gameweek ratings -p hikaru --months 12 --history`,
	RunE: runRatings,
}

var (
	ratingsMonths  int
	ratingsHistory bool
)

func init() {
	ratingsCmd.Flags().IntVar(&ratingsMonths, "months", ratings.DefaultMonths, "monthly archives to read")
	ratingsCmd.Flags().BoolVar(&ratingsHistory, "history", false, "print every daily point")
	rootCmd.AddCommand(ratingsCmd)
}

var arrows = map[ratings.Direction]string{
	ratings.Up:   "▲",
	ratings.Down: "▼",
	ratings.Flat: "–",
}

func runRatings(cmd *cobra.Command, args []string) error {
	if err := requirePlayers(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := chesscom.NewClient(chesscom.WithLogger(logger))
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	for _, name := range players {
		points, err := ratings.History(ctx, client, strings.ToLower(name), timeClass,
			ratings.WithMonths(ratingsMonths),
			ratings.WithLogger(logger),
		)
		if err != nil {
			fmt.Fprintf(tw, "%s\t%s\n", name, err)
			continue
		}

		s := ratings.Summarize(points)
		if !s.HasRating {
			fmt.Fprintf(tw, "%s\tno %s games\n", name, timeClass)
			continue
		}
		delta := ""
		if s.HasDelta {
			delta = fmt.Sprintf("%s %+d", arrows[s.Direction], s.Delta)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%+.1f/day\n", name, s.Rating, delta, s.PerDay)

		if ratingsHistory {
			for _, p := range points {
				fmt.Fprintf(tw, "\t%s\t%d\t\n", p.Date.Format(time.DateOnly), p.Rating)
			}
		}
	}
	return nil
}
