// Package metrics registers the server's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FinalizeRuns counts payout-compiler runs per result.
	FinalizeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stakepact_finalize_runs_total",
		Help: "Call session finalize attempts, by result.",
	}, []string{"result"})

	// ObligationsUpserted counts obligation rows written by finalize.
	ObligationsUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stakepact_obligations_upserted_total",
		Help: "Payment obligation rows upserted by the payout compiler.",
	})

	// CauseLossesRecorded counts newly created cause losses.
	CauseLossesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stakepact_cause_losses_total",
		Help: "Cause losses first recorded by the payout compiler.",
	})

	// DeletionOutcomes counts deletion-vote outcomes.
	DeletionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stakepact_deletion_outcomes_total",
		Help: "Deletion consensus vote outcomes.",
	}, []string{"outcome"})

	// HTTPRequests counts requests by route and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stakepact_http_requests_total",
		Help: "HTTP requests served.",
	}, []string{"method", "path", "status"})

	// HTTPDuration observes request latency per route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stakepact_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
