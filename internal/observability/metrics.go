package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	submissionsCreatedTotal *prometheus.CounterVec
	evaluationsPendingTotal prometheus.Counter
	artifactsRejectedTotal  *prometheus.CounterVec
	httpRequestsTotal       *prometheus.CounterVec
	httpLatencySeconds      *prometheus.HistogramVec
	httpErrorsTotal         *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the submission pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		submissionsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_created_total",
			Help: "Total number of submissions created, labelled by initial status.",
		}, []string{"status"})

		evaluationsPendingTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evaluations_pending_total",
			Help: "Number of submissions persisted without a grade because the evaluator was unavailable.",
		})

		artifactsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifacts_rejected_total",
			Help: "Number of uploads rejected during validation.",
		}, []string{"reason"})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(
			submissionsCreatedTotal, evaluationsPendingTotal, artifactsRejectedTotal,
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// SubmissionsCreated exposes the counter for created submissions.
func SubmissionsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsCreatedTotal
}

// EvaluationsPending exposes the counter for degraded grading outcomes.
func EvaluationsPending() prometheus.Counter {
	RegisterMetrics()
	return evaluationsPendingTotal
}

// ArtifactsRejected exposes the counter for upload validation rejections.
func ArtifactsRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return artifactsRejectedTotal
}
