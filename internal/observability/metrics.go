package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	submissionAttempts     *prometheus.CounterVec
	gradeWritesTotal       *prometheus.CounterVec
	summaryRefreshDuration prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aula_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aula_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		submissionAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aula_submission_attempts_total",
			Help: "Submission attempts partitioned by outcome (accepted, rejected).",
		}, []string{"outcome"})

		gradeWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aula_grade_writes_total",
			Help: "Grade ledger writes partitioned by result.",
		}, []string{"result"})

		summaryRefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aula_summary_refresh_seconds",
			Help:    "Time spent recomputing progress summaries.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			submissionAttempts,
			gradeWritesTotal,
			summaryRefreshDuration,
		)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for served requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// SubmissionAttempts exposes the counter for attempt outcomes.
func SubmissionAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionAttempts
}

// GradeWrites exposes the counter for grade ledger writes.
func GradeWrites() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeWritesTotal
}

// SummaryRefreshDuration exposes the histogram for summary recomputation.
func SummaryRefreshDuration() prometheus.Histogram {
	RegisterMetrics()
	return summaryRefreshDuration
}
