package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors exported at /metrics
type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	Analyses            *prometheus.CounterVec
	AnalysisConfidence  *prometheus.HistogramVec
	MetadataFetches     *prometheus.CounterVec
	MetadataCache       *prometheus.CounterVec
	BreakerState        *prometheus.GaugeVec
	RateLimitBlocks     *prometheus.CounterVec
	UploadBytes         prometheus.Histogram
}

// NewMetrics registers the collectors with reg. Tests pass a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aivd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aivd_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		Analyses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aivd_analyses_total",
				Help: "Total number of completed analyses by source and verdict",
			},
			[]string{"source", "verdict"},
		),
		AnalysisConfidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aivd_analysis_confidence",
				Help:    "Distribution of confidence scores",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"source"},
		),
		MetadataFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aivd_metadata_fetches_total",
				Help: "Total number of remote metadata fetches by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
		MetadataCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aivd_metadata_cache_total",
				Help: "Metadata cache lookups by result",
			},
			[]string{"result"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aivd_circuit_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
		RateLimitBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aivd_rate_limit_blocks_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"limiter"},
		),
		UploadBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aivd_upload_size_bytes",
				Help:    "Size of accepted uploads",
				Buckets: prometheus.ExponentialBuckets(1<<20, 4, 6),
			},
		),
	}
}

// RecordRequest records a finished HTTP request
func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAnalysis records a scoring outcome. source is "file" or "url".
func (m *Metrics) RecordAnalysis(source string, confidence float64, verdict bool) {
	m.Analyses.WithLabelValues(source, strconv.FormatBool(verdict)).Inc()
	m.AnalysisConfidence.WithLabelValues(source).Observe(confidence)
}

// RecordFetch records a metadata fetch outcome ("ok", "error", "timeout", "breaker_open")
func (m *Metrics) RecordFetch(backend, outcome string) {
	m.MetadataFetches.WithLabelValues(backend, outcome).Inc()
}

// RecordCache records a metadata cache hit or miss
func (m *Metrics) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.MetadataCache.WithLabelValues(result).Inc()
}

// SetBreakerState exports a breaker state as a number
func (m *Metrics) SetBreakerState(name string, state int) {
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordRateLimitBlock counts a rejected request
func (m *Metrics) RecordRateLimitBlock(limiter string) {
	m.RateLimitBlocks.WithLabelValues(limiter).Inc()
}

// RecordUpload observes an accepted upload size
func (m *Metrics) RecordUpload(sizeBytes int64) {
	m.UploadBytes.Observe(float64(sizeBytes))
}
