// Package metrics exposes Prometheus instruments for editor sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flowedit"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type Metrics struct {
	// SessionsOpen tracks mounted editor sessions
	SessionsOpen prometheus.Gauge

	// SessionsReaped counts sessions closed for being idle
	SessionsReaped prometheus.Counter

	// EditorEvents counts session activity: mutation, undo, redo and transient
	EditorEvents *prometheus.CounterVec

	// WorkflowSaves counts save attempts by result
	WorkflowSaves *prometheus.CounterVec

	// PublishFailures counts events the bus refused
	PublishFailures *prometheus.CounterVec
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_open",
			Help:      "Number of mounted editor sessions",
		}),
		SessionsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_reaped_total",
			Help:      "Total number of idle sessions closed by the reaper",
		}),
		EditorEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "editor_events_total",
				Help:      "Total number of editor events by activity",
			},
			[]string{"activity"},
		),
		WorkflowSaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_saves_total",
				Help:      "Total number of workflow saves by result",
			},
			[]string{"result"},
		),
		PublishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_publish_failures_total",
				Help:      "Total number of events that could not be published",
			},
			[]string{"event_type"},
		),
	}

	reg.MustRegister(m.SessionsOpen, m.SessionsReaped, m.EditorEvents, m.WorkflowSaves, m.PublishFailures)

	return m
}

// NewNop returns instruments that are not registered anywhere.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) SessionOpened() {
	m.SessionsOpen.Inc()
}

func (m *Metrics) SessionClosed(reaped bool) {
	m.SessionsOpen.Dec()

	if reaped {
		m.SessionsReaped.Inc()
	}
}

func (m *Metrics) EditorEvent(activity string) {
	m.EditorEvents.WithLabelValues(activity).Inc()
}

func (m *Metrics) WorkflowSaved(err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}

	m.WorkflowSaves.WithLabelValues(result).Inc()
}

func (m *Metrics) PublishFailed(eventType string) {
	m.PublishFailures.WithLabelValues(eventType).Inc()
}
