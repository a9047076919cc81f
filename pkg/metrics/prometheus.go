// Package metrics provides Prometheus metrics for the squadlink pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	scoreBuckets     []float64
	registry         prometheus.Registerer

	// Retrieval
	pagesFetched   *prometheus.CounterVec
	fetchLatency   prometheus.Histogram
	tablesFound    *prometheus.CounterVec
	tablesMissing  *prometheus.CounterVec
	teamsCollected prometheus.Gauge

	// Assembly
	duplicateKeys *prometheus.CounterVec
	mergedRows    prometheus.Gauge
	projectedRows prometheus.Gauge

	// Entity resolution
	matchOutcomes *prometheus.CounterVec
	matchScore    prometheus.Histogram

	// Queue and workers
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDequeued     prometheus.Counter
	queueEnqueueError prometheus.Counter
	workerCount       prometheus.Gauge
	workerErrors      prometheus.Counter
	workerLatency     prometheus.Histogram

	// Stages
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process
	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge
	gcPauseTime    prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "squadlink",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		scoreBuckets:     []float64{50, 60, 70, 80, 85, 90, 95, 100},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.pagesFetched = m.counterVec("pages_fetched_total", "Pages retrieved by origin (network or snapshot) and outcome", "origin", "outcome")
	m.fetchLatency = m.histogram("fetch_latency_seconds", "Page retrieval latency in seconds", m.histogramBuckets)
	m.tablesFound = m.counterVec("tables_extracted_total", "Tables extracted per family", "family")
	m.tablesMissing = m.counterVec("tables_missing_total", "Tables absent from a page per family", "family")
	m.teamsCollected = m.gauge("teams_collected", "Teams whose pages were processed in the current run")

	m.duplicateKeys = m.counterVec("duplicate_keys_total", "Identity key duplicates observed per family", "family")
	m.mergedRows = m.gauge("merged_rows", "Rows in the merged wide table")
	m.projectedRows = m.gauge("projected_rows", "Rows after projection and minutes filter")

	m.matchOutcomes = m.counterVec("match_outcomes_total", "Entity resolution outcomes", "outcome")
	m.matchScore = m.histogram("match_score", "Best similarity score per resolved target", m.scoreBuckets)

	m.queueSize = m.gauge("queue_size", "Current number of queued page jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueEnqueueError = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")
	m.workerCount = m.gauge("worker_count", "Current number of running workers")
	m.workerErrors = m.counter("worker_errors_total", "Total number of failed jobs")
	m.workerLatency = m.histogram("worker_processing_latency_seconds", "Per-job processing latency in seconds", m.histogramBuckets)

	m.stageDuration = m.histogramVec("stage_duration_seconds", "Pipeline stage duration in seconds", "stage")
	m.stageErrors = m.counterVec("stage_errors_total", "Pipeline stage failures", "stage")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.memoryUsage = m.gauge("memory_usage_bytes", "Heap bytes allocated")
	m.goroutineCount = m.gauge("goroutines", "Current number of goroutines")
	m.gcPauseTime = m.gauge("gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// RecordPageFetched counts a page retrieval; origin is "network" or "snapshot".
func RecordPageFetched(origin, outcome string) {
	globalManager.pagesFetched.WithLabelValues(origin, outcome).Inc()
}

// RecordFetchLatency records page retrieval latency in seconds.
func RecordFetchLatency(seconds float64) {
	globalManager.fetchLatency.Observe(seconds)
}

// RecordTableExtracted counts a table found on a page.
func RecordTableExtracted(family string) {
	globalManager.tablesFound.WithLabelValues(family).Inc()
}

// RecordTableMissing counts a table absent from a page.
func RecordTableMissing(family string) {
	globalManager.tablesMissing.WithLabelValues(family).Inc()
}

// UpdateTeamsCollected sets the number of processed teams.
func UpdateTeamsCollected(count int) {
	globalManager.teamsCollected.Set(float64(count))
}

// RecordDuplicateKeys adds n identity key duplicates for family.
func RecordDuplicateKeys(family string, n int) {
	if n <= 0 {
		return
	}
	globalManager.duplicateKeys.WithLabelValues(family).Add(float64(n))
}

// UpdateMergedRows sets the merged row count.
func UpdateMergedRows(count int) {
	globalManager.mergedRows.Set(float64(count))
}

// UpdateProjectedRows sets the projected row count.
func UpdateProjectedRows(count int) {
	globalManager.projectedRows.Set(float64(count))
}

// RecordMatch records a resolution outcome and its best score.
func RecordMatch(accepted bool, score float64) {
	outcome := "unmatched"
	if accepted {
		outcome = "matched"
	}
	globalManager.matchOutcomes.WithLabelValues(outcome).Inc()
	globalManager.matchScore.Observe(score)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueError.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerProcessingLatency records per-job latency in seconds.
func RecordWorkerProcessingLatency(seconds float64) {
	globalManager.workerLatency.Observe(seconds)
}

// RecordStageDuration records how long a stage took, in seconds.
func RecordStageDuration(stage string, seconds float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordStageError increments the failure counter of a stage.
func RecordStageError(stage string) {
	globalManager.stageErrors.WithLabelValues(stage).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.memoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.goroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime sets the average GC pause.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.gcPauseTime.Set(ms)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
