// Package metrics provides Prometheus metrics for the tabulation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the tabulation service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Submission pipeline
	submissionsAccepted  prometheus.Counter
	submissionsIncomplete prometheus.Counter
	validationFailures   prometheus.Counter
	lockConflicts        prometheus.Counter
	locksCreated         prometheus.Counter
	locksRemoved         prometheus.Counter

	// Recompute pipeline
	recomputes        prometheus.Counter
	recomputeErrors   prometheus.Counter
	recomputeLatency  prometheus.Histogram
	refreshesCoalesced prometheus.Counter
	queueDepth        prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge
	queueEnqueueErrors prometheus.Counter
	workerCount       prometheus.Gauge

	// Store
	storeOpLatency *prometheus.HistogramVec
	storeErrors    prometheus.Counter

	// Business scale
	contestants prometheus.Gauge
	judges      prometheus.Gauge
	scores      prometheus.Gauge
	locks       prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tiara",
		subsystem:        "tabulation",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.submissionsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_accepted_total",
		Help:      "Total number of score submissions written and locked",
	})
	m.submissionsIncomplete = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_incomplete_total",
		Help:      "Total number of submissions whose scores were written but whose lock step is still pending",
	})
	m.validationFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_failures_total",
		Help:      "Total number of submissions rejected for out-of-range or malformed scores",
	})
	m.lockConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lock_conflicts_total",
		Help:      "Total number of score writes refused because the tuple was already locked",
	})
	m.locksCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "locks_created_total",
		Help:      "Total number of submission locks created",
	})
	m.locksRemoved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "locks_removed_total",
		Help:      "Total number of submission locks removed by administrators",
	})

	m.recomputes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recomputes_total",
		Help:      "Total number of standings recomputations",
	})
	m.recomputeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_errors_total",
		Help:      "Total number of failed standings recomputations",
	})
	m.recomputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_latency_milliseconds",
		Help:      "Histogram of standings recompute latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.refreshesCoalesced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refreshes_coalesced_total",
		Help:      "Total number of refresh events skipped because one was already pending",
	})
	m.queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_queue_depth",
		Help:      "Current number of pending refresh events",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_queue_capacity",
		Help:      "Configured capacity of the refresh queue",
	})
	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_queue_utilization",
		Help:      "Refresh queue depth as a fraction of capacity",
	})
	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_enqueue_errors_total",
		Help:      "Total number of refresh events dropped at enqueue",
	})
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of recompute workers",
	})

	m.storeOpLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_op_latency_milliseconds",
		Help:      "Store operation latency in milliseconds by operation",
		Buckets:   m.histogramBuckets,
	}, []string{"op"})
	m.storeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Total number of store errors",
	})

	m.contestants = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "contestants",
		Help:      "Number of contestants in the event",
	})
	m.judges = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "judges",
		Help:      "Number of judges in the event",
	})
	m.scores = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_rows",
		Help:      "Number of score rows in the store",
	})
	m.locks = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submission_locks",
		Help:      "Number of submission locks in the store",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// Package-level helpers against the global manager.

func RecordSubmissionAccepted() {
	if globalManager.enabled {
		globalManager.submissionsAccepted.Inc()
	}
}

func RecordSubmissionIncomplete() {
	if globalManager.enabled {
		globalManager.submissionsIncomplete.Inc()
	}
}

func RecordValidationFailure() {
	if globalManager.enabled {
		globalManager.validationFailures.Inc()
	}
}

func RecordLockConflict() {
	if globalManager.enabled {
		globalManager.lockConflicts.Inc()
	}
}

func RecordLockCreated() {
	if globalManager.enabled {
		globalManager.locksCreated.Inc()
	}
}

func RecordLockRemoved() {
	if globalManager.enabled {
		globalManager.locksRemoved.Inc()
	}
}

func RecordRecompute() {
	if globalManager.enabled {
		globalManager.recomputes.Inc()
	}
}

func RecordRecomputeError() {
	if globalManager.enabled {
		globalManager.recomputeErrors.Inc()
	}
}

func RecordRecomputeLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.recomputeLatency.Observe(latencyMs)
	}
}

func RecordRefreshCoalesced() {
	if globalManager.enabled {
		globalManager.refreshesCoalesced.Inc()
	}
}

func UpdateQueueDepth(depth int) {
	if globalManager.enabled {
		globalManager.queueDepth.Set(float64(depth))
	}
}

func UpdateQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

func UpdateQueueUtilization(utilization float64) {
	if globalManager.enabled {
		globalManager.queueUtilization.Set(utilization)
	}
}

func RecordQueueEnqueueError() {
	if globalManager.enabled {
		globalManager.queueEnqueueErrors.Inc()
	}
}

func UpdateWorkerCount(count int) {
	if globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

func RecordStoreOpLatency(op string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeOpLatency.WithLabelValues(op).Observe(latencyMs)
	}
}

func RecordStoreError() {
	if globalManager.enabled {
		globalManager.storeErrors.Inc()
	}
}

func UpdateContestants(count int) {
	if globalManager.enabled {
		globalManager.contestants.Set(float64(count))
	}
}

func UpdateJudges(count int) {
	if globalManager.enabled {
		globalManager.judges.Set(float64(count))
	}
}

func UpdateScoreRows(count int) {
	if globalManager.enabled {
		globalManager.scores.Set(float64(count))
	}
}

func UpdateSubmissionLocks(count int) {
	if globalManager.enabled {
		globalManager.locks.Set(float64(count))
	}
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
