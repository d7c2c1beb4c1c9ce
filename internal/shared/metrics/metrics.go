package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_started_total",
		Help: "Total ingestion runs started",
	})
	ingestCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_completed_total",
		Help: "Total ingestion runs that persisted a document",
	})
	ingestFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_failed_total",
		Help: "Total ingestion runs that failed, by stage",
	}, []string{"stage"})
	ingestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_duration_seconds",
		Help:    "Ingestion duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})
	enrichmentDegradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_degraded_total",
		Help: "Enrichment fields that fell back to their default value",
	}, []string{"field"})
	extractionDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "extraction_degraded_total",
		Help: "Ingestion runs whose text extraction failed",
	})
	indexJobsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "index_jobs_received_total",
		Help: "Total index jobs received by the worker",
	})
	indexJobsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "index_jobs_completed_total",
		Help: "Total index jobs completed",
	})
	indexJobsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "index_jobs_failed_total",
		Help: "Total index jobs that failed and will be retried",
	})
	indexJobsDeletedUnrecoverableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "index_jobs_deleted_unrecoverable_total",
		Help: "Total index jobs deleted because they can never succeed",
	})
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})
)

// IncIngestStarted increments the started counter.
func IncIngestStarted() {
	ingestStartedTotal.Inc()
}

// IncIngestCompleted increments the completed counter.
func IncIngestCompleted() {
	ingestCompletedTotal.Inc()
}

// IncIngestFailed increments the failed counter for a pipeline stage.
func IncIngestFailed(stage string) {
	ingestFailedTotal.WithLabelValues(stage).Inc()
}

// ObserveIngestDuration records how long an ingestion run took.
func ObserveIngestDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	ingestDuration.Observe(d.Seconds())
}

// IncEnrichmentDegraded counts a field that used its fallback.
func IncEnrichmentDegraded(field string) {
	enrichmentDegradedTotal.WithLabelValues(field).Inc()
}

// IncExtractionDegraded counts a failed extraction.
func IncExtractionDegraded() {
	extractionDegradedTotal.Inc()
}

// IncIndexJobsReceived increments the received counter.
func IncIndexJobsReceived() {
	indexJobsReceivedTotal.Inc()
}

// IncIndexJobsCompleted increments the completed counter.
func IncIndexJobsCompleted() {
	indexJobsCompletedTotal.Inc()
}

// IncIndexJobsFailed increments the failed counter.
func IncIndexJobsFailed() {
	indexJobsFailedTotal.Inc()
}

// IncIndexJobsDeletedUnrecoverable increments the unrecoverable counter.
func IncIndexJobsDeletedUnrecoverable() {
	indexJobsDeletedUnrecoverableTotal.Inc()
}

// Middleware counts requests per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
