package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mecanomotors/mecano/internal/lifecycle"
)

var (
	DirectoryQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mecano",
		Name:      "directory_queries_total",
		Help:      "Listing queries ranked, by listing and sort key.",
	}, []string{"listing", "sort"})

	DirectoryResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mecano",
		Name:      "directory_results",
		Help:      "Entities returned per listing query.",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
	}, []string{"listing"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mecano",
		Name:      "request_transitions_total",
		Help:      "Reservation and order lifecycle transitions, by kind, action and resulting status.",
	}, []string{"kind", "action", "status"})

	Payments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mecano",
		Name:      "payments_total",
		Help:      "Checkout charges, by method and outcome.",
	}, []string{"method", "outcome"})
)

// ObserveTransition records a lifecycle change.
func ObserveTransition(kind lifecycle.Kind, action string, r lifecycle.Request) {
	Transitions.WithLabelValues(string(kind), action, string(r.Status)).Inc()
}

// ObserveRank records one ranked listing.
func ObserveRank(listing, sort string, results int) {
	DirectoryQueries.WithLabelValues(listing, sort).Inc()
	DirectoryResults.WithLabelValues(listing).Observe(float64(results))
}

// ObservePayment records a charge attempt.
func ObservePayment(method string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	Payments.WithLabelValues(method, outcome).Inc()
}
