// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MenuFetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_fetch_attempts_total",
			Help: "Total number of menu fetch attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	MenuFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_fetch_failures_total",
			Help: "Total number of failed menu fetches by source and error kind",
		},
		[]string{"source", "kind"},
	)

	MenuStoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_store_writes_total",
			Help: "Total number of menu store writes by operation and status",
		},
		[]string{"operation", "status"},
	)

	MenuPipelineActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "menu_pipeline_runs_active",
			Help: "Number of menu pipeline runs currently in flight",
		},
	)
)

// StatusLabel maps an error to the status label used by the counters above.
func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
