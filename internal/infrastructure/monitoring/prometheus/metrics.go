package prometheus

import (
	"strconv"
	"time"
)

// Default bucket layouts.
var (
	// DefaultDurationBuckets covers request latencies from 1ms to 10s.
	DefaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// WheelGenerationBuckets covers aggregation plus layout, which stays well
	// under a second except on cold caches with very large scopes.
	WheelGenerationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

	// ExtractionBuckets covers calls to the external extraction service.
	ExtractionBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
)

// AppMetrics bundles the application level metrics.
type AppMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Wheel metrics
	WheelGenerationsTotal   CounterVec
	WheelGenerationDuration HistogramVec
	WheelDescriptorCount    HistogramVec

	// Cache metrics
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	// Extraction metrics
	ExtractionRequestsTotal CounterVec
	ExtractionDuration      HistogramVec
	ExtractionTokensTotal   CounterVec

	// Database metrics
	DBQueryDuration HistogramVec

	// Worker metrics
	WorkerMessagesTotal CounterVec

	// Error metrics
	ErrorsTotal CounterVec
}

// NewAppMetrics registers the application metrics on the given collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal: collector.RegisterCounter(
			"http_requests_total",
			"Total number of HTTP requests",
			"method", "path", "status"),
		HTTPRequestDuration: collector.RegisterHistogram(
			"http_request_duration_seconds",
			"HTTP request latency in seconds",
			DefaultDurationBuckets,
			"method", "path"),
		HTTPActiveRequests: collector.RegisterGauge(
			"http_active_requests",
			"Number of in-flight HTTP requests",
			"method"),

		WheelGenerationsTotal: collector.RegisterCounter(
			"wheel_generations_total",
			"Total number of wheel generations",
			"wheel_type", "scope_type", "source"),
		WheelGenerationDuration: collector.RegisterHistogram(
			"wheel_generation_duration_seconds",
			"Wheel generation latency in seconds",
			WheelGenerationBuckets,
			"wheel_type", "scope_type"),
		WheelDescriptorCount: collector.RegisterHistogram(
			"wheel_descriptor_count",
			"Number of descriptors aggregated per generated wheel",
			[]float64{0, 5, 10, 25, 50, 100, 250, 500, 1000},
			"wheel_type"),

		CacheHitsTotal: collector.RegisterCounter(
			"cache_hits_total",
			"Total number of cache hits",
			"cache"),
		CacheMissesTotal: collector.RegisterCounter(
			"cache_misses_total",
			"Total number of cache misses",
			"cache"),

		ExtractionRequestsTotal: collector.RegisterCounter(
			"extraction_requests_total",
			"Total number of descriptor extraction requests",
			"status"),
		ExtractionDuration: collector.RegisterHistogram(
			"extraction_duration_seconds",
			"Descriptor extraction latency in seconds",
			ExtractionBuckets),
		ExtractionTokensTotal: collector.RegisterCounter(
			"extraction_tokens_total",
			"Total number of tokens consumed by the extraction service"),

		DBQueryDuration: collector.RegisterHistogram(
			"db_query_duration_seconds",
			"Database query latency in seconds",
			DefaultDurationBuckets,
			"operation"),

		WorkerMessagesTotal: collector.RegisterCounter(
			"worker_messages_total",
			"Total number of messages processed by the worker",
			"topic", "status"),

		ErrorsTotal: collector.RegisterCounter(
			"errors_total",
			"Total number of application errors",
			"code"),
	}
}

// RecordHTTPRequest records a completed HTTP request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordWheelGeneration records a wheel generation.  Source is "cache" when
// the wheel was served from the cache and "generated" otherwise.
func (m *AppMetrics) RecordWheelGeneration(wheelType, scopeType, source string, descriptors int, duration time.Duration) {
	m.WheelGenerationsTotal.WithLabelValues(wheelType, scopeType, source).Inc()
	m.WheelGenerationDuration.WithLabelValues(wheelType, scopeType).Observe(duration.Seconds())
	m.WheelDescriptorCount.WithLabelValues(wheelType).Observe(float64(descriptors))
}

// RecordCacheAccess records a cache lookup outcome.
func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordExtraction records a call to the extraction service.
func (m *AppMetrics) RecordExtraction(status string, tokens int, duration time.Duration) {
	m.ExtractionRequestsTotal.WithLabelValues(status).Inc()
	m.ExtractionDuration.WithLabelValues().Observe(duration.Seconds())
	if tokens > 0 {
		m.ExtractionTokensTotal.WithLabelValues().Add(float64(tokens))
	}
}

// RecordDBQuery records a database query duration.
func (m *AppMetrics) RecordDBQuery(operation string, duration time.Duration) {
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordWorkerMessage records a consumed worker message.
func (m *AppMetrics) RecordWorkerMessage(topic, status string) {
	m.WorkerMessagesTotal.WithLabelValues(topic, status).Inc()
}

// RecordError records an application error by code.
func (m *AppMetrics) RecordError(code string) {
	m.ErrorsTotal.WithLabelValues(code).Inc()
}
