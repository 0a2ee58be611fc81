// Package metrics holds the Prometheus collectors of the chat server. They
// live in the default registry and are served by Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat"

// Outcome labels for MessagesTotal besides the error codes sent to clients.
const OutcomeSent = "sent"

// Outcome labels for RegistrationsTotal.
const (
	OutcomeRegistered = "registered"
	OutcomeTaken      = "taken"
	OutcomeInvalid    = "invalid"
	OutcomeError      = "error"
)

var (
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_total",
		Help:      "send_message requests by outcome.",
	}, []string{"outcome"})

	RegistrationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Directory registrations by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(MessagesTotal, RegistrationsTotal)
}

// HubStats is the part of the hub the gauges read.
type HubStats interface {
	ClientCount() int
	GroupCount() int
}

// ObserveHub exposes live connection and delivery group counts of h.
func ObserveHub(reg prometheus.Registerer, h HubStats) error {
	connections := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections",
		Help:      "Open relay connections.",
	}, func() float64 { return float64(h.ClientCount()) })

	groups := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "delivery_groups",
		Help:      "Identities with at least one bound connection.",
	}, func() float64 { return float64(h.GroupCount()) })

	if err := reg.Register(connections); err != nil {
		return err
	}
	return reg.Register(groups)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}
