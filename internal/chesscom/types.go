package chesscom

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/discochess/gameweek/internal/game"
)

// Player is one side of a game.
type Player struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
}

// Accuracies are the site's own per-side accuracies, present only for
// games the site has reviewed.
type Accuracies struct {
	White *float64 `json:"white"`
	Black *float64 `json:"black"`
}

// Game is one entry of a monthly archive.
type Game struct {
	URL        string      `json:"url"`
	PGN        string      `json:"pgn"`
	TimeClass  string      `json:"time_class"`
	Rules      string      `json:"rules"`
	Rated      bool        `json:"rated"`
	StartTime  int64       `json:"start_time"`
	EndTime    int64       `json:"end_time"`
	White      Player      `json:"white"`
	Black      Player      `json:"black"`
	Accuracies *Accuracies `json:"accuracies,omitempty"`
}

// Ended returns when the game finished, falling back to its start for
// entries that carry no end time. The zero time means neither is known.
func (g Game) Ended() time.Time {
	ts := g.EndTime
	if ts == 0 {
		ts = g.StartTime
	}
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

// Side resolves which color username played, ignoring case.
func (g Game) Side(username string) (game.Color, bool) {
	switch {
	case strings.EqualFold(g.White.Username, username):
		return game.White, true
	case strings.EqualFold(g.Black.Username, username):
		return game.Black, true
	default:
		return game.White, false
	}
}

// Info converts the game into a record of username's side. It also returns
// the site's accuracy for that side when present. ok is false when username
// did not play the game.
func (g Game) Info(username string) (info game.Info, accuracy *float64, ok bool) {
	color, ok := g.Side(username)
	if !ok {
		return game.Info{}, nil, false
	}

	own, opp := g.White, g.Black
	if color == game.Black {
		own, opp = g.Black, g.White
	}

	info = game.Info{
		ID:             g.URL,
		MoveText:       g.PGN,
		EndTime:        g.Ended(),
		TimeClass:      g.TimeClass,
		PlayerColor:    color,
		PlayerRating:   own.Rating,
		OpponentName:   opp.Username,
		OpponentRating: opp.Rating,
		Result:         game.ResultFromCode(own.Result),
	}

	if g.Accuracies != nil {
		if color == game.White {
			accuracy = g.Accuracies.White
		} else {
			accuracy = g.Accuracies.Black
		}
	}
	return info, accuracy, true
}

// Stats is the player stats document keyed by category ("chess_blitz",
// "tactics", "fide", ...). Categories are decoded on demand since their
// shapes differ.
type Stats map[string]json.RawMessage

// Rating is a rating at a point in time.
type Rating struct {
	Rating int   `json:"rating"`
	Date   int64 `json:"date"`
}

// LastRating returns the current rating for a time class ("blitz",
// "rapid", ...).
func (s Stats) LastRating(timeClass string) (Rating, bool) {
	raw, ok := s["chess_"+timeClass]
	if !ok {
		return Rating{}, false
	}
	var entry struct {
		Last *Rating `json:"last"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Last == nil || entry.Last.Rating == 0 {
		return Rating{}, false
	}
	return *entry.Last, true
}
