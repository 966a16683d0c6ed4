// Package metrics 提供 Prometheus 指标采集功能
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "plc_agent"
)

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	HTTPPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "panics_total",
			Help:      "Total number of recovered handler panics",
		},
		[]string{"path"},
	)

	// LLM 指标
	LLMTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_used_total",
			Help:      "Total tokens used for LLM calls",
		},
		[]string{"workflow", "model", "type"}, // type: prompt/completion
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM call duration in seconds",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"workflow", "model"},
	)

	LLMCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_total",
			Help:      "Total number of LLM calls",
		},
		[]string{"workflow", "model", "status"},
	)

	// 工具调用指标
	ToolCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "call_total",
			Help:      "Total number of tool invocations",
		},
		[]string{"tool", "status"}, // status: success/error/not_permitted/unknown/invalid_arguments
	)

	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "call_duration_seconds",
			Help:      "Tool invocation duration in seconds",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		},
		[]string{"tool"},
	)

	// 对话编排指标
	ToolRounds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "tool_rounds",
			Help:      "Number of model rounds per submission",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 10},
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "sessions_active",
			Help:      "Current number of live conversation sessions",
		},
	)

	SessionEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "session_evictions_total",
			Help:      "Total number of sessions removed from the registry",
		},
		[]string{"reason"}, // idle/reset
	)

	// 配额指标
	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "rejections_total",
			Help:      "Total number of submissions rejected by the daily quota",
		},
		[]string{"tier"},
	)

	// 项目生命周期指标
	StageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "stage_transitions_total",
			Help:      "Total number of stage advance attempts",
		},
		[]string{"from", "result"}, // result: advanced/prerequisite_missing/already_complete
	)

	DocumentsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "documents_recorded_total",
			Help:      "Total number of generated documents recorded",
		},
		[]string{"doc_type"},
	)

	// 自动化网关指标
	BridgeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "requests_total",
			Help:      "Total number of automation bridge requests",
		},
		[]string{"endpoint", "status"},
	)

	// 消息流指标
	RedisStreamPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "stream_published_total",
			Help:      "Total number of Redis stream messages published",
		},
		[]string{"stream", "status"},
	)
)
