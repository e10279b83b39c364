package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/discochess/gameweek/internal/store"
)

// ManifestKey is the store key of the report index.
const ManifestKey = "manifest.json"

// Manifest indexes every published report.
type Manifest struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Entries   []Entry   `json:"entries"`
}

// Entry locates one published report.
type Entry struct {
	Player      string    `json:"player"`
	TimeClass   string    `json:"time_class"`
	Week        string    `json:"week"`
	Key         string    `json:"key"`
	Compression string    `json:"compression"`
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Games       int       `json:"games"`
}

// Find returns the entry for player, timeClass and week. An empty week
// matches the most recent one.
func (m *Manifest) Find(player, timeClass, week string) (Entry, bool) {
	for _, e := range m.Entries {
		if e.Player == player && e.TimeClass == timeClass && (week == "" || e.Week == week) {
			return e, true
		}
	}
	return Entry{}, false
}

// upsert replaces the entry for the same player, time class and week, or
// appends it. Entries stay sorted newest week first, then by player.
func (m *Manifest) upsert(e Entry) {
	replaced := false
	for i := range m.Entries {
		cur := m.Entries[i]
		if cur.Player == e.Player && cur.TimeClass == e.TimeClass && cur.Week == e.Week {
			m.Entries[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		m.Entries = append(m.Entries, e)
	}
	sort.Slice(m.Entries, func(i, j int) bool {
		a, b := m.Entries[i], m.Entries[j]
		if a.Week != b.Week {
			return a.Week > b.Week
		}
		if a.Player != b.Player {
			return a.Player < b.Player
		}
		return a.TimeClass < b.TimeClass
	})
}

// ReadManifest loads the manifest from s. A missing manifest is returned
// empty.
func ReadManifest(ctx context.Context, s store.Store) (*Manifest, error) {
	data, err := s.Get(ctx, ManifestKey)
	if errors.Is(err, store.ErrNotFound) {
		return &Manifest{Version: Version}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// WriteManifest stores m under ManifestKey.
func WriteManifest(ctx context.Context, s store.Store, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := s.Put(ctx, ManifestKey, data); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
