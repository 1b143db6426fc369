// Package observ carries the engine's logging and Prometheus metrics.
//
// Metrics exposed:
//   - engine_decisions_total{viable}       – EV gate outcomes
//   - engine_orders_total{type,status}     – simulated orders by type and fill status
//   - engine_audit_verifications_total{ok} – audit hash verification outcomes
//   - engine_decay_trials_total            – Monte Carlo trials run
//   - engine_fill_notional_usd             – notional filled by the last plan (gauge)
package observ

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mtxDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_decisions_total",
			Help: "Viability gate decisions",
		},
		[]string{"viable"},
	)

	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_orders_total",
			Help: "Simulated orders by type and terminal status",
		},
		[]string{"type", "status"},
	)

	mtxAuditVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_audit_verifications_total",
			Help: "Audit hash verifications by outcome",
		},
		[]string{"ok"},
	)

	mtxDecayTrials = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_decay_trials_total",
			Help: "Bootstrap Monte Carlo trials simulated",
		},
	)

	mtxFillNotional = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_fill_notional_usd",
			Help: "Notional USD filled by the most recent execution plan",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxDecisions, mtxOrders, mtxAuditVerifications)
	prometheus.MustRegister(mtxDecayTrials, mtxFillNotional)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func IncDecision(viable bool)      { mtxDecisions.WithLabelValues(boolLabel(viable)).Inc() }
func IncAuditVerification(ok bool) { mtxAuditVerifications.WithLabelValues(boolLabel(ok)).Inc() }
func AddDecayTrials(n int)         { mtxDecayTrials.Add(float64(n)) }
func SetFillNotional(usd float64)  { mtxFillNotional.Set(usd) }

func IncOrder(orderType, status string) {
	mtxOrders.WithLabelValues(orderType, status).Inc()
}

// MetricsHandler serves the registered metrics in Prometheus text format.
func MetricsHandler() http.Handler { return promhttp.Handler() }
