package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Export pipeline metrics
	ExportRequests  *prometheus.CounterVec
	ExportCacheHits prometheus.Counter
	BlobWrites      prometheus.Counter

	// Indexing pipeline metrics
	IndexJobs      *prometheus.CounterVec
	ReindexRuns    prometheus.Counter
	ReindexedItems prometheus.Counter

	// Search metrics
	SearchRequests prometheus.Counter
	SearchLatency  prometheus.Histogram
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	if globalMetrics != nil {
		return globalMetrics
	}

	metrics := &Metrics{
		// Export requests by format
		ExportRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stackhub_export_requests_total",
			Help: "Total number of export requests by format",
		}, []string{"format"}),

		ExportCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stackhub_export_cache_hits_total",
			Help: "Export responses served from the fast cache",
		}),

		BlobWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stackhub_blob_writes_total",
			Help: "New artifacts written to durable storage",
		}),

		// Indexing work units by outcome: "ok", "retried", "dead"
		IndexJobs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stackhub_index_jobs_total",
			Help: "Indexing work units processed by outcome",
		}, []string{"outcome"}),

		ReindexRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stackhub_reindex_runs_total",
			Help: "Full reindex operations started",
		}),

		ReindexedItems: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stackhub_reindexed_items_total",
			Help: "Items re-embedded during full reindex runs",
		}),

		SearchRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stackhub_search_requests_total",
			Help: "Total number of semantic search requests",
		}),

		SearchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stackhub_search_duration_seconds",
			Help:    "Search request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}, // embedding call dominates
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance (nil until InitMetrics)
func GetMetrics() *Metrics {
	return globalMetrics
}
