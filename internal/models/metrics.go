package models

// SystemMetrics is a point-in-time view of service health counters.
type SystemMetrics struct {
	TotalRequests     uint64  `json:"total_requests"`
	ErrorRequests     uint64  `json:"error_requests"`
	CacheHits         uint64  `json:"cache_hits"`
	CacheMisses       uint64  `json:"cache_misses"`
	CacheHitRatio     float64 `json:"cache_hit_ratio"`
	RunsStarted       uint64  `json:"runs_started"`
	RunsCompleted     uint64  `json:"runs_completed"`
	RunsFailed        uint64  `json:"runs_failed"`
	ActiveRuns        int64   `json:"active_runs"`
	LastRunScore      int     `json:"last_run_score"`
	AverageRunSeconds float64 `json:"average_run_seconds"`
	QueuePending      int     `json:"queue_pending"`
}
