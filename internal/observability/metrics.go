package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ent0n29/vocabrelay/internal/memo"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	WebhookCalls    *prometheus.CounterVec
	ChatCompletions *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec

	gatherer prometheus.Gatherer
	window   *latencyWindow
}

// NewMetrics registers the instruments on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Inbound HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "Inbound HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"route"}),
		WebhookCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_calls_total",
			Help:      "Webhook calls by action and outcome.",
		}, []string{"action", "outcome"}),
		ChatCompletions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_completions_total",
			Help:      "Chat completion requests by outcome.",
		}, []string{"outcome"}),
		UpstreamLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_ms",
			Help:      "Latency of outbound calls in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 16000},
		}, []string{"upstream"}),
	}
	m.window = newLatencyWindow(256)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

func (m *Metrics) ObserveWebhook(action memo.Action, outcome string, d time.Duration) {
	m.WebhookCalls.WithLabelValues(string(action), outcome).Inc()
	m.UpstreamLatency.WithLabelValues("webhook").Observe(float64(d.Milliseconds()))
	m.window.Observe("webhook:"+string(action), d, outcome != "ok")
}

func (m *Metrics) ObserveChat(outcome string, d time.Duration) {
	m.ChatCompletions.WithLabelValues(outcome).Inc()
	m.UpstreamLatency.WithLabelValues("chat").Observe(float64(d.Milliseconds()))
	m.window.Observe("chat", d, outcome == "error")
}

// SnapshotLatency reports recent upstream latencies for the perf endpoint.
func (m *Metrics) SnapshotLatency() LatencySnapshot {
	return m.window.Snapshot()
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(float64(d.Milliseconds()))
}

// Handler serves the registry the metrics were registered on, falling back to
// the default registry.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
