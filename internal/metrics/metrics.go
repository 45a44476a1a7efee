// Package metrics defines and registers the client's Prometheus metrics.
// It is the single source of truth for metric names, labels, and help strings.
//
// Metrics register with the default Prometheus registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "h2trade"

// ── Dispatcher metrics ────────────────────────────────────────────────────────

// RequestsTotal counts outbound marketplace calls.
// Labels:
//   - method: HTTP method
//   - route: route template (e.g. "/products/{id}")
//   - outcome: "ok" or the normalized error kind (e.g. "unauthorized", "network")
var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Total number of marketplace requests, by outcome.",
	},
	[]string{"method", "route", "outcome"},
)

// RequestDuration measures round-trip time of outbound calls, failures included.
var RequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Duration of marketplace requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// ── Bid metrics ───────────────────────────────────────────────────────────────

// BidsTotal counts bid attempts by their final outcome.
// Label:
//   - outcome: "pending", "matched", "rejected" (client validation) or "failed" (remote)
var BidsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bids_total",
		Help:      "Total number of bid attempts, by outcome.",
	},
	[]string{"outcome"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionTransitionsTotal counts session changes.
// Label:
//   - transition: "login", "register", "logout", "restore", "expired"
var SessionTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "Total number of session state transitions.",
	},
	[]string{"transition"},
)
