package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerEntries counts audit ledger writes by action tag.
	LedgerEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_ledger_entries_total",
			Help: "Total number of audit ledger entries recorded",
		},
		[]string{"action"},
	)

	// Invitations counts invitation lifecycle events by outcome
	// (issued|accepted|resent|revoked|expired).
	Invitations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_invitations_total",
			Help: "Total number of invitation lifecycle events",
		},
		[]string{"outcome"},
	)

	// EmailChanges counts email change request outcomes
	// (submitted|approved|rejected|expired|blocked).
	EmailChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_email_changes_total",
			Help: "Total number of email change workflow events",
		},
		[]string{"outcome"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "identity_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
