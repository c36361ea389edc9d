// Package observability exposes Prometheus metrics for the conversation
// pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus metrics for one process. Each collector
// owns its registry so tests never hit duplicate-registration panics.
type Collector struct {
	registry *prometheus.Registry

	// Stream metrics
	StreamsStarted *prometheus.CounterVec
	StreamsFailed  *prometheus.CounterVec
	StreamsAborted prometheus.Counter
	StreamDuration prometheus.Histogram
	EventsDecoded  prometheus.Counter

	// Tool call metrics
	ToolCallsDispatched *prometheus.CounterVec
	ToolCallsDropped    *prometheus.CounterVec

	// Diagram metrics
	NodesCreated       prometheus.Counter
	ConnectionsCreated prometheus.Counter

	// Persistence metrics
	SessionSaves      prometheus.Counter
	SessionSaveFailed prometheus.Counter
}

// NewCollector creates a collector under the given metric namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		StreamsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "streams_started_total",
				Help:      "Completion streams opened, by provider",
			},
			[]string{"provider"},
		),
		StreamsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "streams_failed_total",
				Help:      "Completion streams that ended in a transport or provider error",
			},
			[]string{"provider"},
		),
		StreamsAborted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "streams_aborted_total",
				Help:      "Completion streams cancelled by the user",
			},
		),
		StreamDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stream_duration_seconds",
				Help:      "Wall time from stream open to final event",
				Buckets:   prometheus.DefBuckets,
			},
		),
		EventsDecoded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_decoded_total",
				Help:      "Protocol events decoded from streams",
			},
		),
		ToolCallsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_dispatched_total",
				Help:      "Validated tool calls applied to session state, by tool",
			},
			[]string{"tool"},
		),
		ToolCallsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_dropped_total",
				Help:      "Tool calls dropped for malformed or invalid arguments, by tool",
			},
			[]string{"tool"},
		),
		NodesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagram_nodes_created_total",
				Help:      "Workflow nodes added to diagrams",
			},
		),
		ConnectionsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagram_connections_created_total",
				Help:      "Workflow connections added to diagrams",
			},
		),
		SessionSaves: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_saves_total",
				Help:      "Session snapshots written",
			},
		),
		SessionSaveFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_save_failures_total",
				Help:      "Session snapshot writes that failed",
			},
		),
	}

	c.registry.MustRegister(
		c.StreamsStarted,
		c.StreamsFailed,
		c.StreamsAborted,
		c.StreamDuration,
		c.EventsDecoded,
		c.ToolCallsDispatched,
		c.ToolCallsDropped,
		c.NodesCreated,
		c.ConnectionsCreated,
		c.SessionSaves,
		c.SessionSaveFailed,
	)
	return c
}

// Registry returns the collector's registry for serving /metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
