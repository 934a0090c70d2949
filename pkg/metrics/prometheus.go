// Package metrics provides Prometheus metrics for the hntally crawler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// Manager manages all Prometheus metrics for the crawler.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Remote store metrics
	remoteFetches      *prometheus.CounterVec
	remoteFetchLatency *prometheus.HistogramVec
	remoteInFlight     prometheus.Gauge
	remoteRateWaits    prometheus.Histogram

	// Traversal metrics
	itemsVisited      prometheus.Counter
	commentsCounted   prometheus.Counter
	branchesAbandoned prometheus.Counter
	duplicateSkipped  prometheus.Counter
	subtreeDepth      prometheus.Histogram

	// Fan-out metrics
	topLevelTasks *prometheus.CounterVec
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	workerCount   prometheus.Gauge
	workerLatency prometheus.Histogram

	// Run metrics
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
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
		namespace:        "hntally",
		subsystem:        "crawler",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.remoteFetches = auto.NewCounterVec(
		m.counterOpts("remote_fetches_total", "Remote store calls by operation and outcome"),
		[]string{"operation", "outcome"},
	)
	m.remoteFetchLatency = auto.NewHistogramVec(
		m.histogramOpts("remote_fetch_latency_milliseconds", "Remote store call latency in milliseconds", m.histogramBuckets),
		[]string{"operation"},
	)
	m.remoteInFlight = auto.NewGauge(m.gaugeOpts("remote_in_flight", "Remote store calls currently in flight"))
	m.remoteRateWaits = auto.NewHistogram(
		m.histogramOpts("remote_rate_wait_milliseconds", "Time spent waiting on the client-side rate limiter", m.histogramBuckets),
	)

	m.itemsVisited = auto.NewCounter(m.counterOpts("items_visited_total", "Items fetched and folded during subtree traversal"))
	m.commentsCounted = auto.NewCounter(m.counterOpts("comments_counted_total", "Authored comments counted"))
	m.branchesAbandoned = auto.NewCounter(m.counterOpts("branches_abandoned_total", "Subtree branches dropped after a failed fetch"))
	m.duplicateSkipped = auto.NewCounter(m.counterOpts("duplicate_ids_skipped_total", "Child ids skipped because they were already visited"))
	m.subtreeDepth = auto.NewHistogram(
		m.histogramOpts("subtree_depth_levels", "Number of levels walked per subtree", []float64{1, 2, 3, 5, 8, 13, 21, 34}),
	)

	m.topLevelTasks = auto.NewCounterVec(
		m.counterOpts("top_level_tasks_total", "Top-level item tasks by outcome"),
		[]string{"outcome"},
	)
	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Top-level tasks waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Capacity of the top-level task queue"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Workers processing top-level tasks"))
	m.workerLatency = auto.NewHistogram(
		m.histogramOpts("worker_task_latency_milliseconds", "Time to process one top-level task", m.histogramBuckets),
	)

	m.runs = auto.NewCounterVec(m.counterOpts("runs_total", "Aggregation runs by outcome"), []string{"outcome"})
	m.runDuration = auto.NewHistogram(
		m.histogramOpts("run_duration_milliseconds", "Duration of a full aggregation run", m.histogramBuckets),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
}

// RecordRemoteFetch records one remote store call.
func RecordRemoteFetch(operation, outcome string, latencyMs float64) {
	globalManager.remoteFetches.WithLabelValues(operation, outcome).Inc()
	globalManager.remoteFetchLatency.WithLabelValues(operation).Observe(latencyMs)
}

// IncRemoteInFlight marks a remote call as started.
func IncRemoteInFlight() {
	globalManager.remoteInFlight.Inc()
}

// DecRemoteInFlight marks a remote call as finished.
func DecRemoteInFlight() {
	globalManager.remoteInFlight.Dec()
}

// RecordRateLimitWait records time spent blocked on the rate limiter.
func RecordRateLimitWait(waitMs float64) {
	globalManager.remoteRateWaits.Observe(waitMs)
}

// RecordItemVisited increments the visited items counter.
func RecordItemVisited() {
	globalManager.itemsVisited.Inc()
}

// RecordCommentCounted increments the counted comments counter.
func RecordCommentCounted() {
	globalManager.commentsCounted.Inc()
}

// RecordBranchAbandoned increments the abandoned branches counter.
func RecordBranchAbandoned() {
	globalManager.branchesAbandoned.Inc()
}

// RecordDuplicateSkipped increments the duplicate id counter.
func RecordDuplicateSkipped() {
	globalManager.duplicateSkipped.Inc()
}

// RecordSubtreeDepth records how many levels a subtree walk took.
func RecordSubtreeDepth(levels int) {
	globalManager.subtreeDepth.Observe(float64(levels))
}

// RecordTopLevelTask records the outcome of a top-level task.
func RecordTopLevelTask(outcome string) {
	globalManager.topLevelTasks.WithLabelValues(outcome).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerTaskLatency records how long a worker spent on one task.
func RecordWorkerTaskLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordRun records a finished aggregation run.
func RecordRun(outcome string, durationMs float64) {
	globalManager.runs.WithLabelValues(outcome).Inc()
	globalManager.runDuration.Observe(durationMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
