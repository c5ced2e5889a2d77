// Package metrics provides Prometheus metrics for the challenge ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "challengeledger"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiCalls       *prometheus.CounterVec
	evaluations    *prometheus.CounterVec
	routesRecorded *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		apiCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_pages_total",
			Help:      "Activity pages retrieved, by source (api or cache).",
		}, []string{"source"}),
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Yearly payment evaluations, by outcome.",
		}, []string{"outcome"}),
		routesRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_recorded_total",
			Help:      "Route upserts, by result (inserted, replaced, dropped).",
		}, []string{"result"}),
	}
}

func (m *Metrics) ActivityPage(source string) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(source).Inc()
}

func (m *Metrics) Evaluation(outcome string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Route(result string) {
	if m == nil {
		return
	}
	m.routesRecorded.WithLabelValues(result).Inc()
}
