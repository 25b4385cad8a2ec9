// Package observability wires the Prometheus metrics and OpenTelemetry
// spans used to watch the bus, the cognition loop, and tool execution
// from the outside, separate from the structured logging each package
// already does on its own via slog.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus collectors this repo exports. Unlike the
// teacher's much larger Metrics (HTTP, database, webhook, and session
// surfaces that have no counterpart here), this tracks only the three
// things worth watching in this module: bus backlog, tool call
// outcomes, and model handle cache effectiveness.
type Metrics struct {
	// BusQueueDepth reports EventBus.Pending() on each scrape.
	BusQueueDepth prometheus.GaugeFunc

	// ToolCallCounter counts tool executions by name and outcome.
	// Labels: tool_name, status (success|error)
	ToolCallCounter *prometheus.CounterVec

	// ToolCallDuration measures tool execution latency in seconds.
	// Labels: tool_name
	ToolCallDuration *prometheus.HistogramVec

	// ModelCacheCounter counts Registry.Get resolutions by cache outcome.
	// Labels: result (hit|miss)
	ModelCacheCounter *prometheus.CounterVec
}

// NewMetrics registers every collector against the default Prometheus
// registry, matching the teacher's promauto.NewMetrics construction
// shape. busPending is polled on each /metrics scrape to populate
// BusQueueDepth; for a bus.EventBus, pass a func returning
// float64(b.Pending()).
func NewMetrics(busPending func() float64) *Metrics {
	return &Metrics{
		BusQueueDepth: promauto.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "agentcore_bus_queue_depth",
				Help: "Number of events currently queued for dispatch on the event bus",
			},
			busPending,
		),

		ToolCallCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcore_tool_calls_total",
				Help: "Total number of tool executions by tool name and outcome",
			},
			[]string{"tool_name", "status"},
		),

		ToolCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentcore_tool_call_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),

		ModelCacheCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcore_model_cache_total",
				Help: "Total number of model handle resolutions by cache outcome",
			},
			[]string{"result"},
		),
	}
}

// RecordToolCall records a completed tool execution.
func (m *Metrics) RecordToolCall(toolName, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ToolCallCounter.WithLabelValues(toolName, status).Inc()
	m.ToolCallDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordModelCacheHit records a Registry.Get call served from cache.
func (m *Metrics) RecordModelCacheHit() {
	if m == nil {
		return
	}
	m.ModelCacheCounter.WithLabelValues("hit").Inc()
}

// RecordModelCacheMiss records a Registry.Get call that built a fresh
// Handle via the factory.
func (m *Metrics) RecordModelCacheMiss() {
	if m == nil {
		return
	}
	m.ModelCacheCounter.WithLabelValues("miss").Inc()
}
