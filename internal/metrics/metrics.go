// Package metrics holds the Prometheus collectors the pipeline reports to.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tgdispatch"

// Collectors groups the pipeline counters. A nil *Collectors is valid and
// records nothing.
type Collectors struct {
	Routed        *prometheus.CounterVec
	Undeliverable *prometheus.CounterVec
	Handled       *prometheus.CounterVec
	Received      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_routed_total",
			Help:      "Updates delivered to an arm, by kind.",
		}, []string{"kind"}),
		Undeliverable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_undeliverable_total",
			Help:      "Updates handed to the error policy, by kind and reason.",
		}, []string{"kind", "reason"}),
		Handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_handled_total",
			Help:      "Items consumed by dispatcher handlers, by handler.",
		}, []string{"handler"}),
		Received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_received_total",
			Help:      "Updates emitted by delivery sources, by source.",
		}, []string{"source"}),
	}
	if reg != nil {
		reg.MustRegister(c.Routed, c.Undeliverable, c.Handled, c.Received)
	}
	return c
}

func (c *Collectors) IncRouted(kind string) {
	if c == nil {
		return
	}
	c.Routed.WithLabelValues(kind).Inc()
}

func (c *Collectors) IncUndeliverable(kind, reason string) {
	if c == nil {
		return
	}
	c.Undeliverable.WithLabelValues(kind, reason).Inc()
}

func (c *Collectors) IncHandled(handler string) {
	if c == nil {
		return
	}
	c.Handled.WithLabelValues(handler).Inc()
}

func (c *Collectors) IncReceived(source string) {
	if c == nil {
		return
	}
	c.Received.WithLabelValues(source).Inc()
}
