// Package metrics exposes prometheus metrics for the HTTP layer and assistant runs
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Assistant
	AssistantRunsTotal   *prometheus.CounterVec
	AssistantRunDuration prometheus.Histogram
	ToolCallsTotal       *prometheus.CounterVec
	GateRejectionsTotal  prometheus.Counter
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abby_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "abby_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "abby_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	m.AssistantRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abby_assistant_runs_total",
			Help: "Total number of assistant runs by final status",
		},
		[]string{"status"},
	)

	m.AssistantRunDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "abby_assistant_run_duration_seconds",
			Help:    "Duration of assistant runs in seconds",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)

	m.ToolCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abby_tool_calls_total",
			Help: "Total number of tool calls by function and result",
		},
		[]string{"function", "result"},
	)

	m.GateRejectionsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "abby_message_gate_rejections_total",
			Help: "Messages rejected because a run was still in progress",
		},
	)

	return m
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records a finished request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Inc()
}

func (m *Metrics) RequestFinished() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Dec()
}

// RecordRun records a run that reached status
func (m *Metrics) RecordRun(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.AssistantRunsTotal.WithLabelValues(status).Inc()
	m.AssistantRunDuration.Observe(duration.Seconds())
}

// RecordToolCall records one tool invocation
func (m *Metrics) RecordToolCall(function string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.ToolCallsTotal.WithLabelValues(function, result).Inc()
}

func (m *Metrics) RecordGateRejection() {
	if m == nil {
		return
	}
	m.GateRejectionsTotal.Inc()
}
