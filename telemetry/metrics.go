package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the bridge did. A nil *Metrics is valid and records
// nothing, so packages can be used without a registry.
type Metrics struct {
	fetches      *prometheus.CounterVec
	publishSteps *prometheus.CounterVec
	cycles       *prometheus.CounterVec
	lastCycle    *prometheus.GaugeVec
}

// New creates the bridge metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_bot_fetch_total",
			Help: "Metabase card fetches by outcome (ok, empty, failed).",
		}, []string{"outcome"}),
		publishSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_bot_publish_steps_total",
			Help: "Chat API calls of the publish sequence by step and outcome.",
		}, []string{"step", "outcome"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_bot_cycles_total",
			Help: "Collect and publish runs by outcome (done, skipped, failed).",
		}, []string{"phase", "outcome"}),
		lastCycle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "activity_bot_last_cycle_timestamp_seconds",
			Help: "Unix time of the last finished run per phase.",
		}, []string{"phase"}),
	}
	reg.MustRegister(m.fetches, m.publishSteps, m.cycles, m.lastCycle)
	return m
}

func (m *Metrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePublishStep(step, outcome string) {
	if m == nil {
		return
	}
	m.publishSteps.WithLabelValues(step, outcome).Inc()
}

// ObserveCycle counts a finished run and stamps its completion time.
func (m *Metrics) ObserveCycle(phase, outcome string, at time.Time) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(phase, outcome).Inc()
	m.lastCycle.WithLabelValues(phase).Set(float64(at.Unix()))
}
