// Package ratings builds a player's daily rating history for one time
// class.
package ratings

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/discochess/gameweek/internal/chesscom"
)

// DefaultMonths is how many monthly archives History reads.
const DefaultMonths = 6

// Source is the remote game and stats source.
type Source interface {
	Archives(ctx context.Context, username string) ([]string, error)
	Games(ctx context.Context, archiveURL string) ([]chesscom.Game, error)
	Stats(ctx context.Context, username string) (chesscom.Stats, error)
}

// Point is the rating at the end of one UTC day.
type Point struct {
	Date   time.Time
	Rating int
}

// Direction is the sign of the latest rating change.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	Flat Direction = "flat"
)

// Summary describes the latest rating and its change.
type Summary struct {
	Rating    int
	HasRating bool

	// Delta is the change from the previous point; HasDelta is false with
	// fewer than two points.
	Delta    int
	HasDelta bool

	Direction Direction

	// PerDay is the least-squares rating trend in points per day.
	PerDay float64
}

// Option configures History.
type Option func(*config)

type config struct {
	months int
	now    func() time.Time
	logger *zap.Logger
}

// WithMonths sets how many of the most recent archives are read.
func WithMonths(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.months = n
		}
	}
}

// WithClock replaces time.Now; it dates the current rating from stats.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// History returns one point per day on which username finished a game in
// timeClass, oldest first, plus today's rating from the stats endpoint.
// Only a failure to list archives is an error; unreadable archives and
// stats are skipped.
func History(ctx context.Context, src Source, username, timeClass string, opts ...Option) ([]Point, error) {
	cfg := config{months: DefaultMonths, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.Named("ratings").With(zap.String("player", username))

	archives, err := src.Archives(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("listing archives of %s: %w", username, err)
	}
	if len(archives) > cfg.months {
		archives = archives[len(archives)-cfg.months:]
	}

	type latest struct {
		at     time.Time
		rating int
	}
	var mu sync.Mutex
	daily := make(map[time.Time]latest)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for _, archive := range archives {
		g.Go(func() error {
			games, err := src.Games(gctx, archive)
			if err != nil {
				logger.Warn("skipping archive", zap.String("archive", archive), zap.Error(err))
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, gm := range games {
				if gm.TimeClass != timeClass {
					continue
				}
				info, _, ok := gm.Info(username)
				if !ok || info.PlayerRating == 0 || info.EndTime.IsZero() {
					continue
				}
				day := info.EndTime.Truncate(24 * time.Hour)
				if cur, ok := daily[day]; !ok || !info.EndTime.Before(cur.at) {
					daily[day] = latest{at: info.EndTime, rating: info.PlayerRating}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s, err := src.Stats(ctx, username); err != nil {
		logger.Warn("stats unavailable", zap.Error(err))
	} else if r, ok := s.LastRating(timeClass); ok {
		today := cfg.now().UTC().Truncate(24 * time.Hour)
		daily[today] = latest{at: cfg.now(), rating: r.Rating}
	}

	points := make([]Point, 0, len(daily))
	for day, l := range daily {
		points = append(points, Point{Date: day, Rating: l.rating})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// Summarize reports the latest rating, the change from the point before it
// and the overall trend.
func Summarize(points []Point) Summary {
	if len(points) == 0 {
		return Summary{Direction: Flat}
	}

	last := points[len(points)-1]
	s := Summary{Rating: last.Rating, HasRating: true, Direction: Flat}
	if len(points) > 1 {
		s.Delta = last.Rating - points[len(points)-2].Rating
		s.HasDelta = true
		switch {
		case s.Delta > 0:
			s.Direction = Up
		case s.Delta < 0:
			s.Direction = Down
		}
		s.PerDay = trend(points)
	}
	return s
}

// trend fits rating against days since the first point.
func trend(points []Point) float64 {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Date.Sub(points[0].Date).Hours() / 24
		ys[i] = float64(p.Rating)
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta
}
