// Package metrics exposes locator and run counters in prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pushqa/wpregress/pkg/locator"
	"github.com/pushqa/wpregress/pkg/status"
)

const namespace = "wpregress"

// Metrics holds collectors on a private registry, so several runs in one process don't collide.
type Metrics struct {
	reg *prometheus.Registry

	locates      *prometheus.CounterVec
	depth        *prometheus.HistogramVec
	locateTime   *prometheus.HistogramVec
	steps        *prometheus.CounterVec
	scenarios    *prometheus.CounterVec
	scenarioTime prometheus.Histogram
	running      prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		locates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locate_total",
			Help:      "Locate calls by action and outcome.",
		}, []string{"action", "outcome"}),
		depth: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "locate_match_depth",
			Help:      "1-based position of the matched candidate.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		}, []string{"action"}),
		locateTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "locate_duration_seconds",
			Help:      "Time spent in Locate, including candidate waits.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Finished steps by status.",
		}, []string{"status"}),
		scenarios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_total",
			Help:      "Finished scenarios by status.",
		}, []string{"status"}),
		scenarioTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scenario_duration_seconds",
			Help:      "Scenario wall time.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scenarios_running",
			Help:      "Scenarios currently executing.",
		}),
	}
	m.reg.MustRegister(m.locates, m.depth, m.locateTime, m.steps, m.scenarios, m.scenarioTime, m.running)
	return m
}

// Observe records a locate result. Implements locator.Observer.
func (m *Metrics) Observe(action locator.Action, res locator.Result) {
	m.locates.WithLabelValues(string(action), string(res.Outcome)).Inc()
	m.locateTime.WithLabelValues(string(res.Outcome)).Observe(res.Elapsed.Seconds())
	if res.Succeeded {
		m.depth.WithLabelValues(string(action)).Observe(float64(res.Depth()))
	}
}

// ScenarioStarted increments the running gauge.
func (m *Metrics) ScenarioStarted() {
	m.running.Inc()
}

// ScenarioFinished records a finished scenario and decrements the running gauge.
func (m *Metrics) ScenarioFinished(st status.ScenarioStatus, d time.Duration) {
	m.running.Dec()
	m.scenarios.WithLabelValues(string(st)).Inc()
	m.scenarioTime.Observe(d.Seconds())
}

// StepFinished records a finished step.
func (m *Metrics) StepFinished(st status.StepStatus) {
	m.steps.WithLabelValues(string(st)).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, used by tests and for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
