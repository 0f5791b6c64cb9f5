package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	recordsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garmin_export",
		Subsystem: "sync",
		Name:      "records_processed_total",
		Help:      "Records handled per reconciliation run, by classification result.",
	}, []string{"result"})
	categoryFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garmin_export",
		Subsystem: "sync",
		Name:      "category_fetch_failures_total",
		Help:      "Enrichment category fetches that failed and will be retried on a later run.",
	}, []string{"category"})
	lastRunGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "garmin_export",
		Subsystem: "sync",
		Name:      "last_run_completed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful reconciliation run.",
	})
)

func init() {
	prometheus.MustRegister(recordsProcessed, categoryFailures, lastRunGauge)
}

// RecordRunResults adds one run's classification counts.
func RecordRunResults(newCount, updated, unchanged int) {
	recordsProcessed.WithLabelValues("new").Add(float64(newCount))
	recordsProcessed.WithLabelValues("updated").Add(float64(updated))
	recordsProcessed.WithLabelValues("unchanged").Add(float64(unchanged))
}

// RecordCategoryFailure counts one failed enrichment category fetch.
func RecordCategoryFailure(category string) {
	categoryFailures.WithLabelValues(category).Inc()
}

// RecordRunCompleted updates the run completion watermark.
func RecordRunCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastRunGauge.Set(float64(ts.Unix()))
}
