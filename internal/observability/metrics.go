// Package observability exposes prometheus metrics for the ingestion
// pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	syncRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tessera",
		Subsystem: "ingest",
		Name:      "sync_runs_total",
		Help:      "Sync runs by vendor and outcome.",
	}, []string{"vendor", "outcome"})
	observationsImported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tessera",
		Subsystem: "ingest",
		Name:      "observations_imported_total",
		Help:      "Observation rows upserted by vendor.",
	}, []string{"vendor"})
	lastSyncGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tessera",
		Subsystem: "ingest",
		Name:      "last_sync_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful sync per vendor.",
	}, []string{"vendor"})
)

func init() {
	prometheus.MustRegister(syncRunsTotal, observationsImported, lastSyncGauge)
}

// RecordSyncSuccess updates the per-vendor success counters and watermark.
func RecordSyncSuccess(vendor string, imported int, ts time.Time) {
	syncRunsTotal.WithLabelValues(vendor, "success").Inc()
	observationsImported.WithLabelValues(vendor).Add(float64(imported))
	if !ts.IsZero() {
		lastSyncGauge.WithLabelValues(vendor).Set(float64(ts.Unix()))
	}
}

// RecordSyncFailure counts a failed sync run.
func RecordSyncFailure(vendor string) {
	syncRunsTotal.WithLabelValues(vendor, "failure").Inc()
}
