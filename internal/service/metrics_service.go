package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

type queueStats interface {
	Name() string
	Stats() jobs.Stats
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	runAttempts   prometheus.Histogram
	runScore      prometheus.Gauge
	runsActive    prometheus.Gauge
	unscheduled   prometheus.Gauge
	exportsTotal  *prometheus.CounterVec
	queueRejected prometheus.Counter
	queue         atomic.Value

	cacheHitCount    uint64
	cacheMissCount   uint64
	requestCount     uint64
	errorCount       uint64
	runsStarted      uint64
	runsCompleted    uint64
	runsFailed       uint64
	runDurationTotal uint64
	activeRuns       int64
	lastScore        int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_runs_total",
		Help: "Generation runs by final status",
	}, []string{"status"})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_run_duration_seconds",
		Help:    "Wall time of generation runs",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	runAttempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_run_attempts",
		Help:    "Attempts executed per generation run",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	runScore := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_last_score",
		Help: "Score of the most recent finished run",
	})

	runsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_runs_active",
		Help: "Generation runs currently executing",
	})

	unscheduled := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_last_unscheduled",
		Help: "Unscheduled lessons of the most recent finished run",
	})

	exportsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_exports_total",
		Help: "Rendered timetable exports by format",
	}, []string{"format"})

	queueRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_queue_rejected_total",
		Help: "Generation requests rejected because the queue was full",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, dbQueryDuration,
		runsTotal, runDuration, runAttempts, runScore, runsActive, unscheduled, exportsTotal, queueRejected, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		dbQueryDuration: dbQueryDuration,
		runsTotal:       runsTotal,
		runDuration:     runDuration,
		runAttempts:     runAttempts,
		runScore:        runScore,
		runsActive:      runsActive,
		unscheduled:     unscheduled,
		exportsTotal:    exportsTotal,
		queueRejected:   queueRejected,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	if status >= http.StatusInternalServerError {
		atomic.AddUint64(&m.errorCount, 1)
	}
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RunStarted marks a generation run as executing.
func (m *MetricsService) RunStarted() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.runsStarted, 1)
	atomic.AddInt64(&m.activeRuns, 1)
	m.runsActive.Inc()
}

// RunFinished records the outcome of a run. status is the run's terminal status.
func (m *MetricsService) RunFinished(status string, score, attempts, unscheduled int, elapsed time.Duration) {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.activeRuns, -1)
	m.runsActive.Dec()
	m.runsTotal.WithLabelValues(status).Inc()
	if status == string(RunFailed) {
		atomic.AddUint64(&m.runsFailed, 1)
		return
	}
	atomic.AddUint64(&m.runsCompleted, 1)
	atomic.AddUint64(&m.runDurationTotal, uint64(elapsed.Nanoseconds()))
	atomic.StoreInt64(&m.lastScore, int64(score))
	m.runDuration.Observe(elapsed.Seconds())
	m.runAttempts.Observe(float64(attempts))
	m.runScore.Set(float64(score))
	m.unscheduled.Set(float64(unscheduled))
}

// ExportRendered counts a rendered export.
func (m *MetricsService) ExportRendered(format string) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(format).Inc()
}

// QueueRejected counts a run refused because the worker queue was full.
func (m *MetricsService) QueueRejected() {
	if m == nil {
		return
	}
	m.queueRejected.Inc()
}

// TrackQueue exports the depth and outcome counters of q.
func (m *MetricsService) TrackQueue(q queueStats) {
	if m == nil || q == nil {
		return
	}
	labels := prometheus.Labels{"queue": q.Name()}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "jobs_pending",
			Help:        "Jobs waiting for a worker",
			ConstLabels: labels,
		}, func() float64 { return float64(q.Stats().Pending) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "jobs_processed_total",
			Help:        "Jobs handled successfully",
			ConstLabels: labels,
		}, func() float64 { return float64(q.Stats().Processed) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "jobs_retried_total",
			Help:        "Job re-deliveries after a failure",
			ConstLabels: labels,
		}, func() float64 { return float64(q.Stats().Retried) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "jobs_failed_total",
			Help:        "Jobs that exhausted their retries",
			ConstLabels: labels,
		}, func() float64 { return float64(q.Stats().Failed) }),
	)
	m.queue.Store(q)
}

// Snapshot returns aggregated counters for the metrics summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	completed := atomic.LoadUint64(&m.runsCompleted)
	runDuration := atomic.LoadUint64(&m.runDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRun float64
	if completed > 0 {
		avgRun = float64(runDuration) / float64(completed) / float64(time.Second)
	}

	var pending int
	if q, ok := m.queue.Load().(queueStats); ok {
		pending = q.Stats().Pending
	}

	return models.SystemMetrics{
		QueuePending:      pending,
		TotalRequests:     atomic.LoadUint64(&m.requestCount),
		ErrorRequests:     atomic.LoadUint64(&m.errorCount),
		CacheHits:         hits,
		CacheMisses:       misses,
		CacheHitRatio:     cacheRatio,
		RunsStarted:       atomic.LoadUint64(&m.runsStarted),
		RunsCompleted:     completed,
		RunsFailed:        atomic.LoadUint64(&m.runsFailed),
		ActiveRuns:        atomic.LoadInt64(&m.activeRuns),
		LastRunScore:      int(atomic.LoadInt64(&m.lastScore)),
		AverageRunSeconds: avgRun,
	}
}
