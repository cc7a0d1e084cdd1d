// Package metrics defines and registers all custom Prometheus metrics for
// the fleet tracking service. It is the single source of truth for metric
// names, labels, and help strings. Metrics register with the default
// registry at import time and are exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracking"

// ── Ingestion metrics ─────────────────────────────────────────────────────────

// PositionsIngestedTotal counts position reports accepted and stored.
var PositionsIngestedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "positions_ingested_total",
		Help:      "Total number of position reports accepted and stored.",
	},
)

// IngestErrorsTotal counts rejected or failed position submissions.
// Label:
//   - reason: "validation" (malformed report) or "storage" (store failure)
var IngestErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_errors_total",
		Help:      "Total number of position submissions that failed, by reason.",
	},
	[]string{"reason"},
)

// ── Broadcast metrics ─────────────────────────────────────────────────────────

// BroadcastDeliveredTotal counts updates handed to a delivery transport.
// Label:
//   - transport: "websocket" (local subscriber queue) or "redis" (pub/sub channel)
var BroadcastDeliveredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_delivered_total",
		Help:      "Total number of vehicle updates delivered, by transport.",
	},
	[]string{"transport"},
)

// BroadcastDroppedTotal counts updates dropped because an outbound queue
// was full. Dropping is by contract preferable to blocking the ingest path.
var BroadcastDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_dropped_total",
		Help:      "Total number of vehicle updates dropped on a full outbound queue, by transport.",
	},
	[]string{"transport"},
)

// LiveSubscribers tracks the number of currently connected WebSocket
// subscribers.
var LiveSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_subscribers",
		Help:      "Current number of connected live-update subscribers.",
	},
)
