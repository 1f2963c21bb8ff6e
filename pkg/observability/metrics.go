// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the judgeide server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// RunBuckets spans submission round trips, from a cached verdict to a
// run that exhausts a long probe budget.
var RunBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

// AssistBuckets covers model completion latencies.
var AssistBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgeide_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judgeide_request_duration_seconds",
			Help:    "Request duration",
			Buckets: RunBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks active SSE run streams.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "judgeide_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// WebSocketSessions tracks connected editor hosts.
	WebSocketSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "judgeide_websocket_sessions_active",
			Help: "Active WebSocket sessions",
		},
	)

	// SubmissionsTotal counts submissions accepted by Judge0.
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgeide_judge0_submissions_total",
			Help: "Judge0 submissions",
		},
		[]string{"flavor"},
	)

	// ProbesTotal counts status requests issued while polling.
	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgeide_judge0_probes_total",
			Help: "Judge0 status probes",
		},
		[]string{"flavor"},
	)

	// RunsTotal counts finished runs by flavor and outcome. The outcome is
	// the status kind of a completed run or "error".
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgeide_runs_total",
			Help: "Finished runs",
		},
		[]string{"flavor", "outcome"},
	)

	// RunTurnaround records submission-to-verdict time in seconds.
	RunTurnaround = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judgeide_run_turnaround_seconds",
			Help:    "Run turnaround time",
			Buckets: RunBuckets,
		},
		[]string{"flavor"},
	)

	// AssistRequestsTotal counts assistant requests by provider, endpoint, and status.
	AssistRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgeide_assist_requests_total",
			Help: "Assistant requests",
		},
		[]string{"provider", "endpoint", "status"},
	)

	// AssistLatency records model latency in seconds.
	AssistLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judgeide_assist_latency_seconds",
			Help:    "Assistant latency",
			Buckets: AssistBuckets,
		},
		[]string{"provider"},
	)

	// ToolCallsTotal counts MCP tool calls by name and outcome.
	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgeide_mcp_tool_calls_total",
			Help: "MCP tool calls",
		},
		[]string{"tool_name", "status"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgeide_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		WebSocketSessions,
		SubmissionsTotal,
		ProbesTotal,
		RunsTotal,
		RunTurnaround,
		AssistRequestsTotal,
		AssistLatency,
		ToolCallsTotal,
		RateLimitRejectedTotal,
	)
}
