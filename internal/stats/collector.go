// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Engine metrics.
	MetricEvaluations        = "gameweek_engine_evaluations_total"
	MetricEvaluationTimeouts = "gameweek_engine_timeouts_total"
	MetricEvaluationSeconds  = "gameweek_engine_evaluation_seconds"

	// Evaluation cache metrics.
	MetricEvalCacheHits   = "gameweek_evalcache_hits_total"
	MetricEvalCacheMisses = "gameweek_evalcache_misses_total"
	MetricEvalCacheSize   = "gameweek_evalcache_size"

	// Evaluation snapshot metrics.
	MetricSnapshotHits    = "gameweek_snapshot_hits_total"
	MetricSnapshotEntries = "gameweek_snapshot_entries"

	// Weekly game cache metrics.
	MetricWeeklyHits      = "gameweek_weekly_cache_hits_total"
	MetricWeeklyFetches   = "gameweek_weekly_fetches_total"
	MetricArchiveFailures = "gameweek_archive_failures_total"
	MetricGamesFetched    = "gameweek_games_fetched_total"
	MetricWeeklyPlayers   = "gameweek_weekly_cached_players"

	// Scheduler metrics.
	MetricJobsEnqueued  = "gameweek_jobs_enqueued_total"
	MetricJobsCompleted = "gameweek_jobs_completed_total"
	MetricJobsFailed    = "gameweek_jobs_failed_total"
	MetricJobsSkipped   = "gameweek_jobs_skipped_total"
	MetricQueueDepth    = "gameweek_queue_depth"
	MetricJobSeconds    = "gameweek_job_seconds"

	// Report metrics.
	MetricReportsPublished = "gameweek_reports_published_total"
)

var help = map[string]string{
	MetricEvaluations:        "Positions evaluated by the engine.",
	MetricEvaluationTimeouts: "Evaluations abandoned after the per-request timeout.",
	MetricEvaluationSeconds:  "Wall time of a single engine evaluation.",
	MetricEvalCacheHits:      "Evaluations served from the memo cache.",
	MetricEvalCacheMisses:    "Evaluations forwarded to the engine.",
	MetricEvalCacheSize:      "Entries held by the evaluation memo cache.",
	MetricSnapshotHits:       "Evaluations served from the persisted snapshot.",
	MetricSnapshotEntries:    "Evaluations held by the persisted snapshot.",
	MetricWeeklyHits:         "Weekly game lookups served from cache.",
	MetricWeeklyFetches:      "Weekly game lookups that went to the remote source.",
	MetricArchiveFailures:    "Monthly archives that could not be fetched or decoded.",
	MetricGamesFetched:       "Games kept after the weekly window and time-class filter.",
	MetricWeeklyPlayers:      "Players whose week is held by the cache.",
	MetricJobsEnqueued:       "Analysis jobs accepted by the scheduler.",
	MetricJobsCompleted:      "Analysis jobs that produced an accuracy.",
	MetricJobsFailed:         "Analysis jobs that ended in the failed state.",
	MetricJobsSkipped:        "Analysis jobs dropped because the game was no longer analyzable.",
	MetricQueueDepth:         "Analysis jobs waiting in the queue.",
	MetricJobSeconds:         "Wall time to analyze one game.",
	MetricReportsPublished:   "Weekly reports written to storage.",
}

// Help returns the description of a metric, or its name when none is known.
func Help(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	return name
}

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
