// Package metrics exposes the Prometheus collectors for the intake service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors around a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	conversationsStarted   prometheus.Counter
	conversationsCompleted prometheus.Counter
	stepEntered            *prometheus.CounterVec
	fallbackResets         prometheus.Counter
	composingRejected      prometheus.Counter
	persistFailures        *prometheus.CounterVec
	activeConversations    prometheus.Gauge
}

// New creates and registers every collector, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		conversationsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "talentscout_conversations_started_total",
			Help: "Total number of intake conversations started",
		}),
		conversationsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "talentscout_conversations_completed_total",
			Help: "Total number of intake conversations that reached the closing step",
		}),
		stepEntered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "talentscout_step_entered_total",
				Help: "Total number of times a conversation entered a step",
			},
			[]string{"step"},
		),
		fallbackResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "talentscout_fallback_resets_total",
			Help: "Total number of conversations reset to the name step from an unknown step",
		}),
		composingRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "talentscout_composing_rejected_total",
			Help: "Total number of submissions rejected while a reply was being composed",
		}),
		persistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "talentscout_persist_failures_total",
				Help: "Total number of session persistence intents that failed or were dropped",
			},
			[]string{"kind"},
		),
		activeConversations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "talentscout_active_conversations",
			Help: "Number of conversations held in memory",
		}),
	}
	m.registry.MustRegister(
		m.conversationsStarted,
		m.conversationsCompleted,
		m.stepEntered,
		m.fallbackResets,
		m.composingRejected,
		m.persistFailures,
		m.activeConversations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ConversationStarted() {
	if m == nil {
		return
	}
	m.conversationsStarted.Inc()
}

func (m *Metrics) ConversationCompleted() {
	if m == nil {
		return
	}
	m.conversationsCompleted.Inc()
}

func (m *Metrics) StepEntered(step string) {
	if m == nil {
		return
	}
	m.stepEntered.WithLabelValues(step).Inc()
}

func (m *Metrics) FallbackReset() {
	if m == nil {
		return
	}
	m.fallbackResets.Inc()
}

func (m *Metrics) ComposingRejected() {
	if m == nil {
		return
	}
	m.composingRejected.Inc()
}

// PersistFailed counts a failed or dropped persistence intent. kind is create, patch or dropped.
func (m *Metrics) PersistFailed(kind string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetActiveConversations(n int) {
	if m == nil {
		return
	}
	m.activeConversations.Set(float64(n))
}
