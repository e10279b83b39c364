// Package report builds and publishes weekly best/worst reports.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/discochess/gameweek/internal/game"
)

// Version is the report and manifest schema version.
const Version = 1

// Game is the exported view of one game.
type Game struct {
	ID             string    `json:"id"`
	EndTime        time.Time `json:"end_time"`
	Color          string    `json:"color"`
	Result         string    `json:"result"`
	PlayerRating   int       `json:"player_rating,omitempty"`
	Opponent       string    `json:"opponent"`
	OpponentRating int       `json:"opponent_rating,omitempty"`
	Status         string    `json:"status"`
	Accuracy       *float64  `json:"accuracy,omitempty"`
}

// Report summarizes one player's week in one time class.
type Report struct {
	Version     int       `json:"version"`
	RunID       string    `json:"run_id,omitempty"`
	Player      string    `json:"player"`
	TimeClass   string    `json:"time_class"`
	Week        string    `json:"week"`
	GeneratedAt time.Time `json:"generated_at"`

	Games    int `json:"games"`
	Analyzed int `json:"analyzed"`
	Failed   int `json:"failed"`

	// MeanAccuracy is nil when no game has an accuracy.
	MeanAccuracy *float64 `json:"mean_accuracy,omitempty"`

	Best  *Game `json:"best,omitempty"`
	Worst *Game `json:"worst,omitempty"`

	// Recent lists every game in the window, newest first.
	Recent []Game `json:"recent"`
}

// Week returns the ISO week label of t, e.g. "2024-W23".
func Week(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Build summarizes records as of now. Records are read under their own
// locks, so Build may run while analysis is in progress.
func Build(player, timeClass string, records []*game.Record, now time.Time) Report {
	r := Report{
		Version:     Version,
		Player:      strings.ToLower(player),
		TimeClass:   timeClass,
		Week:        Week(now),
		GeneratedAt: now.UTC(),
		Recent:      make([]Game, 0, len(records)),
	}

	var accuracies []float64
	for _, rec := range records {
		if rec == nil {
			continue
		}
		r.Games++
		g := export(rec)
		switch rec.Status() {
		case game.StatusComplete:
			r.Analyzed++
		case game.StatusFailed:
			r.Failed++
		}
		if g.Accuracy != nil {
			accuracies = append(accuracies, *g.Accuracy)
		}
		r.Recent = append(r.Recent, g)
	}
	sort.SliceStable(r.Recent, func(i, j int) bool {
		return r.Recent[i].EndTime.After(r.Recent[j].EndTime)
	})

	if len(accuracies) > 0 {
		mean := round1(stat.Mean(accuracies, nil))
		r.MeanAccuracy = &mean
	}

	best, worst := game.SelectBestWorst(records)
	if best != nil {
		g := export(best)
		r.Best = &g
	}
	if worst != nil {
		g := export(worst)
		r.Worst = &g
	}
	return r
}

func export(rec *game.Record) Game {
	g := Game{
		ID:             rec.ID,
		EndTime:        rec.EndTime.UTC(),
		Color:          rec.PlayerColor.String(),
		Result:         string(rec.Result),
		PlayerRating:   rec.PlayerRating,
		Opponent:       rec.OpponentName,
		OpponentRating: rec.OpponentRating,
		Status:         rec.Status().String(),
	}
	if acc, ok := rec.Accuracy(); ok {
		g.Accuracy = &acc
	}
	return g
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
