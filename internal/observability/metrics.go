package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	reportSubmissionsTotal *prometheus.CounterVec
	statusChangesTotal     *prometheus.CounterVec
	authAttemptsTotal      *prometheus.CounterVec
	attachmentRejections   *prometheus.CounterVec
	attachmentStoreSeconds prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors exposed on /metrics.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		reportSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_submissions_total",
			Help: "Incident report submissions by outcome.",
		}, []string{"outcome"})

		statusChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_status_changes_total",
			Help: "Report status transitions applied by admins.",
		}, []string{"from", "to"})

		authAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Admin sign-in attempts by outcome.",
		}, []string{"outcome"})

		attachmentRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attachment_rejections_total",
			Help: "Attachments rejected before storage.",
		}, []string{"reason"})

		attachmentStoreSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "attachment_store_duration_seconds",
			Help:    "Time spent writing attachments to the object store.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			reportSubmissionsTotal,
			statusChangesTotal,
			authAttemptsTotal,
			attachmentRejections,
			attachmentStoreSeconds,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// ReportSubmissions counts submissions labelled accepted, duplicate, invalid or failed.
func ReportSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return reportSubmissionsTotal
}

// StatusChanges counts report status transitions.
func StatusChanges() *prometheus.CounterVec {
	RegisterMetrics()
	return statusChangesTotal
}

// AuthAttempts counts sign-in attempts.
func AuthAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return authAttemptsTotal
}

// AttachmentRejected counts attachments refused for size or type.
func AttachmentRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return attachmentRejections
}

// AttachmentLatency observes object store write latency.
func AttachmentLatency() prometheus.Histogram {
	RegisterMetrics()
	return attachmentStoreSeconds
}

// MetricsHandler serves the default registry in the Prometheus text format.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
