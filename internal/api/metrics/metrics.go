// Package metrics defines and registers all custom Prometheus metrics for
// the financial consistency engine. It is the single source of truth for
// metric names, labels, and help strings.
//
// Metrics register with the default Prometheus registry at package load;
// expose them by mounting promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fincore"

// ── Ledger metrics ────────────────────────────────────────────────────────────

// TransfersCommittedTotal counts transfers that reached committed status.
var TransfersCommittedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfers_committed_total",
		Help:      "Total number of transfers committed to the ledger.",
	},
)

// TransfersErrorsTotal counts transfer commands rejected or failed.
// Label:
//   - reason: short failure class (e.g. "insufficient_funds", "conflict")
var TransfersErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfers_errors_total",
		Help:      "Total number of transfer commands that failed, by reason.",
	},
	[]string{"reason"},
)

// TransferRetriesTotal counts optimistic-concurrency retries across all
// transfer commands. A high rate signals hot accounts.
var TransferRetriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfer_retries_total",
		Help:      "Total number of transfer attempts restarted after a version conflict.",
	},
)

// ── Workflow metrics ──────────────────────────────────────────────────────────

// LoanTransitionsTotal counts applied state-machine transitions.
// Labels:
//   - event: the fired event (e.g. "internal_approve")
//   - to_status: the resulting status
var LoanTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loan_transitions_total",
		Help:      "Total number of loan request transitions applied.",
	},
	[]string{"event", "to_status"},
)

// LoanTransitionErrorsTotal counts rejected transition commands.
// Label:
//   - reason: short failure class (e.g. "invalid_transition")
var LoanTransitionErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loan_transition_errors_total",
		Help:      "Total number of loan request transitions rejected, by reason.",
	},
	[]string{"reason"},
)

// ── Subsidy metrics ───────────────────────────────────────────────────────────

// SubsidyAlertsTotal counts threshold alerts delivered to the sink.
// Label:
//   - level: "low" or "critical"
var SubsidyAlertsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subsidy_alerts_total",
		Help:      "Total number of subsidy threshold alerts raised, by level.",
	},
	[]string{"level"},
)

// SubsidyPoolsExhaustedTotal counts pools that reached full consumption.
var SubsidyPoolsExhaustedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subsidy_pools_exhausted_total",
		Help:      "Total number of subsidy pools that became exhausted.",
	},
)

// ── Broadcast metrics ─────────────────────────────────────────────────────────

// BroadcastQueueDepth tracks pending state changes per fan-out worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var BroadcastQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "broadcast_queue_depth",
		Help:      "Current number of state changes pending in each broadcast worker channel.",
	},
	[]string{"worker_id"},
)

// BroadcastPublishedTotal counts state changes delivered to the pub/sub
// transport.
// Label:
//   - entity_type: "account", "loan_request", or "subsidy_pool"
var BroadcastPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_published_total",
		Help:      "Total number of state changes published, by entity type.",
	},
	[]string{"entity_type"},
)

// BroadcastErrorsTotal counts publishes that failed after all retries.
var BroadcastErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_errors_total",
		Help:      "Total number of state change publishes dropped after exhausting retries.",
	},
)
