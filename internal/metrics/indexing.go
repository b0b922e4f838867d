package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexing pipeline Prometheus metrics.
var (
	IndexingJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loredex",
			Name:      "indexing_jobs_total",
			Help:      "Total number of indexing jobs by outcome",
		},
		[]string{"op", "status"}, // op: "upsert"/"delete"; status: "ok"/"failed"/"superseded"
	)

	IndexingRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "loredex",
			Name:      "indexing_retries_total",
			Help:      "Total number of indexing attempt retries",
		},
	)

	IndexingQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "loredex",
			Name:      "indexing_queue_depth",
			Help:      "Number of jobs waiting in the indexing queue",
		},
	)

	IndexingJobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "loredex",
			Name:      "indexing_job_duration_seconds",
			Help:      "Indexing job duration in seconds, including retries",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

var indexingMetricsRegistered bool

// RegisterIndexingMetrics registers Prometheus indexing metrics. Must be called once from main.
func RegisterIndexingMetrics() {
	if indexingMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexingJobsTotal)
	prometheus.MustRegister(IndexingRetriesTotal)
	prometheus.MustRegister(IndexingQueueDepth)
	prometheus.MustRegister(IndexingJobDuration)
	indexingMetricsRegistered = true
}
