// Package metrics holds the Prometheus collectors shared by the gateway,
// the controller and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	gatewayCalls   *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
	workflows      *prometheus.CounterVec
	rateLimited    prometheus.Counter
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatewayCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dtweet",
			Name:      "gateway_calls_total",
			Help:      "Contract calls by method and outcome.",
		}, []string{"method", "outcome"}),
		gatewayLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dtweet",
			Name:      "gateway_call_seconds",
			Help:      "Contract call latency, including receipt wait for writes.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method"}),
		workflows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dtweet",
			Name:      "workflows_total",
			Help:      "User workflows by name and outcome.",
		}, []string{"workflow", "outcome"}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dtweet",
			Name:      "api_rate_limited_total",
			Help:      "Write requests refused by the rate limiter.",
		}),
	}
}

// ObserveCall records one gateway call. Nil-safe.
func (m *Metrics) ObserveCall(method string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(method, outcome(err)).Inc()
	m.gatewayLatency.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

// Workflow records the outcome of a controller workflow. Nil-safe.
func (m *Metrics) Workflow(name, result string) {
	if m == nil {
		return
	}
	m.workflows.WithLabelValues(name, result).Inc()
}

// RateLimited counts a refused API write. Nil-safe.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
