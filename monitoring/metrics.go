// Package monitoring exposes the engine's Prometheus metrics.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pollCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stratengine_poll_cycles_total",
			Help: "Live engine poll cycles completed",
		},
	)

	actionsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratengine_actions_applied_total",
			Help: "Evaluator actions applied, by kind",
		},
		[]string{"kind"},
	)

	safetyDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratengine_safety_denials_total",
			Help: "Orders denied by admission control, by check",
		},
		[]string{"check"},
	)

	reconcileOverwrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stratengine_reconcile_overwrites_total",
			Help: "Local order records overwritten with broker truth",
		},
	)
)

func init() {
	prometheus.MustRegister(pollCycles)
	prometheus.MustRegister(actionsApplied)
	prometheus.MustRegister(safetyDenials)
	prometheus.MustRegister(reconcileOverwrites)
}

// Handler serves the standard Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordPollCycle() { pollCycles.Inc() }

func RecordAction(kind string) { actionsApplied.WithLabelValues(kind).Inc() }

func RecordSafetyDenial(check string) { safetyDenials.WithLabelValues(check).Inc() }

func RecordReconcileOverwrite() { reconcileOverwrites.Inc() }
