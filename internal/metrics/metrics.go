// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "remindbot"

// Metrics groups the collectors updated by the scheduler and the dispatcher.
type Metrics struct {
	JobsArmed        prometheus.Gauge
	RemindersFired   *prometheus.CounterVec
	DeliveryFailures prometheus.Counter
	EventsHandled    *prometheus.CounterVec
	Arms             prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg uses a fresh
// private registry, which keeps tests independent of the global default.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		JobsArmed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_jobs_armed",
			Help:      "Number of reminder jobs currently armed",
		}),
		RemindersFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_fired_total",
			Help:      "Total number of reminder fires",
		}, []string{"recurrence"}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Total number of reminder deliveries that failed",
		}),
		EventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_handled_total",
			Help:      "Total number of inbound events and commands handled",
		}, []string{"kind"}),
		Arms: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_arms_total",
			Help:      "Total number of arm operations",
		}),
	}

	reg.MustRegister(
		m.JobsArmed,
		m.RemindersFired,
		m.DeliveryFailures,
		m.EventsHandled,
		m.Arms,
	)

	return m
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
