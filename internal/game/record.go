// Package game defines the game record shared by the weekly cache, the
// analysis scheduler and the rendering layer.
package game

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Status is the analysis state of a Record.
type Status int

const (
	// StatusPending means the record is waiting for analysis.
	StatusPending Status = iota
	// StatusAnalyzing means a scheduler job is evaluating the record.
	StatusAnalyzing
	// StatusComplete means the record carries an accuracy.
	StatusComplete
	// StatusFailed means analysis ran and could not produce an accuracy.
	StatusFailed
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAnalyzing:
		return "analyzing"
	case StatusComplete:
		return "complete"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether s is complete or failed.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Color is the side a player had in a game.
type Color int

const (
	White Color = iota
	Black
)

// String returns "white" or "black".
func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// Opponent returns the other color.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Result is the outcome of a game from the tracked player's side.
type Result string

const (
	Win  Result = "win"
	Loss Result = "loss"
	Draw Result = "draw"
)

// drawCodes are the per-side result codes the remote source uses for drawn games.
var drawCodes = map[string]struct{}{
	"agreed":             {},
	"repetition":         {},
	"stalemate":          {},
	"insufficient":       {},
	"50move":             {},
	"timevsinsufficient": {},
	"draw":               {},
}

// ResultFromCode maps a side's own result code to a Result.
// Only that side's field is consulted: a draw shows the same code on both
// sides, while a loss shows a cause ("checkmated", "resigned", ...) that
// says nothing about which draw variant the opponent saw.
func ResultFromCode(code string) Result {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "win" {
		return Win
	}
	if _, ok := drawCodes[code]; ok {
		return Draw
	}
	return Loss
}

// Info holds the immutable fields of a game.
type Info struct {
	ID             string
	MoveText       string
	EndTime        time.Time
	TimeClass      string
	PlayerColor    Color
	PlayerRating   int
	OpponentName   string
	OpponentRating int
	Result         Result
}

// Record is one game of a tracked player.
//
// Status and accuracy are guarded by a mutex so the rendering layer can read
// them while the scheduler writes. Once a record is orphaned (its cache
// entry was invalidated) every status write becomes a no-op.
type Record struct {
	Info

	mu       sync.RWMutex
	status   Status
	accuracy *float64
	orphaned bool
}

// NewRecord returns a pending record. If accuracy is non-nil the record is
// created complete and never needs analysis.
func NewRecord(info Info, accuracy *float64) *Record {
	rec := &Record{Info: info, status: StatusPending}
	if accuracy != nil {
		v := *accuracy
		rec.accuracy = &v
		rec.status = StatusComplete
	}
	return rec
}

// Status returns the current analysis status.
func (r *Record) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Accuracy returns the accuracy and whether one is set.
func (r *Record) Accuracy() (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.accuracy == nil {
		return 0, false
	}
	return *r.accuracy, true
}

// NeedsAnalysis reports whether the record is pending and still attached
// to a cache entry.
func (r *Record) NeedsAnalysis() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.orphaned && r.status == StatusPending && r.accuracy == nil
}

// MarkAnalyzing moves a pending record to analyzing.
// It returns false if the record is orphaned or not pending.
func (r *Record) MarkAnalyzing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.orphaned || r.status != StatusPending {
		return false
	}
	r.status = StatusAnalyzing
	return true
}

// Release returns an analyzing record to pending so the analysis can be
// retried. It returns false if the record is orphaned or not analyzing.
func (r *Record) Release() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.orphaned || r.status != StatusAnalyzing {
		return false
	}
	r.status = StatusPending
	return true
}

// Complete stores accuracy and marks the record complete.
// It returns false if the write was dropped.
func (r *Record) Complete(accuracy float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.orphaned || r.status.Terminal() {
		return false
	}
	r.accuracy = &accuracy
	r.status = StatusComplete
	return true
}

// Fail marks the record failed. It returns false if the write was dropped.
func (r *Record) Fail() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.orphaned || r.status.Terminal() {
		return false
	}
	r.status = StatusFailed
	return true
}

// Orphan detaches the record from its cache entry.
func (r *Record) Orphan() {
	r.mu.Lock()
	r.orphaned = true
	r.mu.Unlock()
}

// Orphaned reports whether the record was detached from its cache entry.
func (r *Record) Orphaned() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.orphaned
}

// Badge returns the short label a renderer shows for the record.
func (r *Record) Badge() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch r.status {
	case StatusComplete:
		if r.accuracy != nil {
			return fmt.Sprintf("%.1f%%", *r.accuracy)
		}
		return "-"
	case StatusAnalyzing:
		return "Analyzing..."
	case StatusFailed:
		return "Analysis failed"
	default:
		return "Waiting..."
	}
}
