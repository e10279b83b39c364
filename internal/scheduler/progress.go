package scheduler

import (
	"fmt"
	"io"
	"time"
)

// Progress counts analysis work in the current refresh cycle.
type Progress struct {
	Analyzed int
	Total    int
}

// Done reports whether every job counted in Total has been processed.
func (p Progress) Done() bool {
	return p.Analyzed >= p.Total
}

// Percent returns the completed share in [0, 100].
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Analyzed) / float64(p.Total) * 100
}

// ProgressFunc is called whenever a record's status or the progress
// counters change. It is the render request hook of the UI layer and runs
// on the scheduler goroutine, so it must not block.
type ProgressFunc func(Progress)

// FormatDuration formats duration as human-readable string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// WriterProgressFunc returns a ProgressFunc printing a single updating line
// to w.
func WriterProgressFunc(w io.Writer) ProgressFunc {
	start := time.Now()
	return func(p Progress) {
		if p.Total == 0 {
			return
		}
		fmt.Fprintf(w, "\r[Analyze] %d / %d games (%.0f%%)", p.Analyzed, p.Total, p.Percent())
		if p.Done() {
			fmt.Fprintf(w, " in %s\n", FormatDuration(time.Since(start)))
			start = time.Now()
		}
	}
}
