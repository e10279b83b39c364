package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/discochess/gameweek/internal/codec/codecs"
	"github.com/discochess/gameweek/internal/store"
)

// ErrNotPublished is returned when the manifest has no matching report.
var ErrNotPublished = errors.New("report: not published")

// Lookup finds the manifest entry of player's report in timeClass for
// week, or for the latest week when week is empty.
func Lookup(ctx context.Context, s store.Store, player, timeClass, week string) (Entry, error) {
	m, err := ReadManifest(ctx, s)
	if err != nil {
		return Entry{}, err
	}
	player = strings.ToLower(player)
	e, ok := m.Find(player, timeClass, week)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s %s %s", ErrNotPublished, player, timeClass, week)
	}
	return e, nil
}

// Load reads the report e points at, decoding it with the codec recorded
// in the entry.
func Load(ctx context.Context, s store.Store, e Entry) (Report, error) {
	c, err := codecs.ByName(e.Compression)
	if err != nil {
		return Report{}, fmt.Errorf("loading %s: %w", e.Key, err)
	}
	encoded, err := s.Get(ctx, e.Key)
	if err != nil {
		return Report{}, fmt.Errorf("loading %s: %w", e.Key, err)
	}
	data, err := c.Decode(encoded)
	if err != nil {
		return Report{}, fmt.Errorf("decoding %s: %w", e.Key, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("parsing %s: %w", e.Key, err)
	}
	return r, nil
}
