package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	chatTotal    *prometheus.CounterVec
	chatDuration prometheus.Histogram

	modelCallTotal    *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec
	toolErrorsTotal       *prometheus.CounterVec

	activeConversations  prometheus.Gauge
	prunedConversations  prometheus.Counter
	evictedMessagesTotal prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			chatTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "chat_requests_total",
					Help: "Total chat requests by status.",
				},
				[]string{"status"},
			),
			chatDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "chat_request_duration_seconds",
					Help:    "End-to-end chat request duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			modelCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "model_call_total",
					Help: "Total model completion calls by provider and status.",
				},
				[]string{"provider", "status"},
			),
			modelCallDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "model_call_duration_seconds",
					Help:    "Model completion call duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_errors_total",
					Help: "Total tool execution errors by tool.",
				},
				[]string{"tool"},
			),
			activeConversations: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_conversations",
					Help: "Current conversation count in the session store.",
				},
			),
			prunedConversations: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "pruned_conversations_total",
					Help: "Total stale conversations removed by pruning.",
				},
			),
			evictedMessagesTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "evicted_messages_total",
					Help: "Total messages dropped by conversation capacity eviction.",
				},
			),
		}

		prometheus.MustRegister(
			m.chatTotal,
			m.chatDuration,
			m.modelCallTotal,
			m.modelCallDuration,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.toolErrorsTotal,
			m.activeConversations,
			m.prunedConversations,
			m.evictedMessagesTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordChat(duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.chatTotal.WithLabelValues(status).Inc()
	m.chatDuration.Observe(duration.Seconds())
}

func RecordModelCall(provider string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.modelCallTotal.WithLabelValues(provider, status).Inc()
	m.modelCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if !success {
		m.toolErrorsTotal.WithLabelValues(tool).Inc()
	}
}

func SetActiveConversations(count int) {
	m := getMetrics()
	m.activeConversations.Set(float64(count))
}

func AddPrunedConversations(count int) {
	m := getMetrics()
	m.prunedConversations.Add(float64(count))
}

func AddEvictedMessages(count int) {
	m := getMetrics()
	m.evictedMessagesTotal.Add(float64(count))
}
