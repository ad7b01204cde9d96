// Package metrics exposes prometheus instrumentation for batch runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Document outcome labels.
const (
	OutcomeSuccess        = "success"
	OutcomeReconciliation = "reconciliation_failure"
	OutcomeConfiguration  = "configuration_error"
	OutcomeWorkerFailure  = "worker_failure"
)

// Registry holds all bankparse collectors.
var Registry = prometheus.NewRegistry()

var (
	documentsProcessed = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "bankparse_documents_processed_total",
		Help: "Documents processed, labelled by outcome.",
	}, []string{"outcome"})

	documentDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "bankparse_document_duration_seconds",
		Help:    "Wall time spent processing a single document.",
		Buckets: prometheus.DefBuckets,
	})

	batchDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "bankparse_batch_duration_seconds",
		Help:    "Wall time of a whole batch run, including the merge pass.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)

// ObserveDocument records one processed document.
func ObserveDocument(outcome string, d time.Duration) {
	documentsProcessed.WithLabelValues(outcome).Inc()
	documentDuration.Observe(d.Seconds())
}

// ObserveBatch records one completed batch run.
func ObserveBatch(d time.Duration) {
	batchDuration.Observe(d.Seconds())
}
