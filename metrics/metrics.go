// Package metrics holds the dispatch counters exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fastaid"

var (
	// Registry is the registry all dispatch collectors are registered on.
	Registry = prometheus.NewRegistry()

	// BookingTransitions counts transition attempts by target status and result
	// (applied, lost, invalid).
	BookingTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "booking",
		Name:      "transitions_total",
		Help:      "Booking transition attempts by target status and result.",
	}, []string{"status", "result"})

	// LedgerClaims counts availability claims by result (won, lost).
	LedgerClaims = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "claims_total",
		Help:      "Resource availability claims by result.",
	}, []string{"result"})

	// LocatorMisses counts searches that found no bookable resource.
	LocatorMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "locator",
		Name:      "misses_total",
		Help:      "Nearest-resource searches that found nothing within the radius.",
	})

	// PropagationSignals counts change signals by result (published, dropped, failed).
	PropagationSignals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "propagation",
		Name:      "signals_total",
		Help:      "Change signals by delivery result.",
	}, []string{"result"})

	// PaymentOutcomes counts settled payment transactions by outcome.
	PaymentOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payment",
		Name:      "outcomes_total",
		Help:      "Payment transactions settled by outcome.",
	}, []string{"outcome"})

	// RouteLookups counts routing requests by source (cache, remote, error).
	RouteLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "routing",
		Name:      "lookups_total",
		Help:      "Route lookups by source.",
	}, []string{"source"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		BookingTransitions,
		LedgerClaims,
		LocatorMisses,
		PropagationSignals,
		PaymentOutcomes,
		RouteLookups,
	)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
