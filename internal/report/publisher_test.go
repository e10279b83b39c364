package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/gameweek/internal/codec/noopcodec"
	"github.com/discochess/gameweek/internal/codec/zstdcodec"
	"github.com/discochess/gameweek/internal/game"
	"github.com/discochess/gameweek/internal/stats"
	"github.com/discochess/gameweek/internal/stats/logger"
	"github.com/discochess/gameweek/internal/store"
	"github.com/discochess/gameweek/internal/store/memstore"
)

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	collector := logger.New(zap.NewNop())
	clock := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)
	p := NewPublisher(s, zstdcodec.New(), WithStats(collector), WithClock(func() time.Time { return clock }))

	now := clock.Add(-time.Hour)
	alice := Build("alice", "blitz", []*game.Record{scored("A", 80, now), scored("B", 90, now)}, now)
	bob := Build("bob", "blitz", []*game.Record{scored("C", 70, now)}, now)

	runID, err := p.Publish(ctx, alice, bob)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if runID == "" {
		t.Fatal("Publish() returned an empty run id")
	}

	key := p.Key(alice)
	if key != "2024-W24/alice-blitz.json.zst" {
		t.Errorf("Key() = %q", key)
	}
	m, err := ReadManifest(ctx, s)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if len(m.Entries) != 2 || !m.UpdatedAt.Equal(clock) {
		t.Fatalf("manifest = %+v", m)
	}
	e, ok := m.Find("bob", "blitz", "2024-W24")
	if !ok || e.Compression != "zstd" || e.RunID != runID || e.Games != 1 {
		t.Errorf("bob entry = %+v, %v", e, ok)
	}
	if n := collector.Total(stats.MetricReportsPublished); n != 2 {
		t.Errorf("reports published = %d, want 2", n)
	}
}

func TestPublisher_RepublishReplacesEntry(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	p := NewPublisher(s, noopcodec.New())
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

	first := Build("alice", "blitz", []*game.Record{scored("A", 80, now)}, now)
	if _, err := p.Publish(ctx, first); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	second := Build("alice", "blitz", []*game.Record{scored("A", 80, now), scored("B", 60, now)}, now)
	secondRun, err := p.Publish(ctx, second)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	older := Build("alice", "blitz", nil, now.AddDate(0, 0, -7))
	if _, err := p.Publish(ctx, older); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	m, err := ReadManifest(ctx, s)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if len(m.Entries) != 2 {
		t.Fatalf("entries = %+v, want 2", m.Entries)
	}
	if m.Entries[0].Week != "2024-W24" || m.Entries[0].RunID != secondRun || m.Entries[0].Games != 2 {
		t.Errorf("newest entry = %+v", m.Entries[0])
	}
	if m.Entries[1].Week != "2024-W23" {
		t.Errorf("older entry = %+v", m.Entries[1])
	}

	raw, err := s.Get(ctx, "2024-W24/alice-blitz.json")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	var r Report
	if err := json.Unmarshal(raw, &r); err != nil || r.Games != 2 {
		t.Errorf("uncompressed report = %+v, %v", r, err)
	}
}

func TestPublisher_NothingToPublish(t *testing.T) {
	s := memstore.New()
	p := NewPublisher(s, noopcodec.New())
	if _, err := p.Publish(context.Background()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if _, err := s.Get(context.Background(), ManifestKey); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("manifest written for an empty publish: %v", err)
	}
}

func TestReadManifest_Corrupt(t *testing.T) {
	s := memstore.New()
	if err := s.Put(context.Background(), ManifestKey, []byte("{")); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadManifest(context.Background(), s); err == nil {
		t.Error("ReadManifest() should fail on invalid JSON")
	}
}
