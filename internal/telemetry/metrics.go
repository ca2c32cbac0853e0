package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared across the core's request
// path and recall pipeline (§4.9 expansion), grounded on the teacher's
// pkg/observability Collector shape: one struct of pre-declared
// CounterVec/HistogramVec fields, registered once at construction.
type Metrics struct {
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	RateLimitRejected  *prometheus.CounterVec
	RecallStageLatency *prometheus.HistogramVec
}

// NewMetrics registers every collector against reg under namespace. Pass
// prometheus.NewRegistry() in tests to avoid duplicate-registration panics
// across test cases that each build their own Metrics.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimitRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}, []string{"auth_id"}),
		RecallStageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recall_stage_duration_seconds",
			Help:      "Recall pipeline stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
}

// ObserveHTTP records one completed request.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveRecallStage records how long a named recall pipeline stage
// (vector search, lexical fallback, decay, rerank) took.
func (m *Metrics) ObserveRecallStage(stage string, d time.Duration) {
	m.RecallStageLatency.WithLabelValues(stage).Observe(d.Seconds())
}
