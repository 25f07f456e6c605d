// Package telemetry exposes prometheus metrics for the repopilot daemon.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the engine and watch loop update.
type Metrics struct {
	CyclesTotal          *prometheus.CounterVec
	CycleDuration        prometheus.Histogram
	ClassificationsTotal *prometheus.CounterVec
	PolicySkipsTotal     *prometheus.CounterVec
	DocsRegenerated      *prometheus.CounterVec
}

// New creates and registers the repopilot collectors on the given
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repopilot",
			Name:      "cycles_total",
			Help:      "Analysis cycles run, by outcome.",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "repopilot",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one analysis cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		ClassificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repopilot",
			Name:      "classifications_total",
			Help:      "Cluster classifications, by label.",
		}, []string{"label"}),
		PolicySkipsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repopilot",
			Name:      "policy_skips_total",
			Help:      "Cycles where policy authorized nothing, by reason.",
		}, []string{"reason"}),
		DocsRegenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repopilot",
			Name:      "documents_regenerated_total",
			Help:      "Documents regenerated, by document type.",
		}, []string{"document"}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.ClassificationsTotal,
		m.PolicySkipsTotal,
		m.DocsRegenerated,
	)
	return m
}
