package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated registry for the gateway service.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sokinpay", Name: "http_requests_total", Help: "Inbound HTTP requests."},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "sokinpay", Name: "http_request_duration_seconds", Help: "Inbound HTTP request duration.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)

	// RemoteCalls counts Sokin API calls by operation and outcome (ok, business_error, transport_error).
	RemoteCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sokinpay", Name: "remote_calls_total", Help: "Calls to the Sokin API."},
		[]string{"op", "outcome"},
	)
	RemoteLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "sokinpay", Name: "remote_call_duration_ms", Help: "Sokin API latency in ms.", Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}},
		[]string{"op"},
	)

	ReconcileOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sokinpay", Name: "reconcile_outcomes_total", Help: "Reconciliation outcomes by action."},
		[]string{"action"},
	)
	Refunds = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sokinpay", Name: "refunds_total", Help: "Refund attempts by outcome."},
		[]string{"outcome"},
	)
)

var regOnce sync.Once

// Register adds the gateway collectors plus Go/process collectors to Registry.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration, RemoteCalls, RemoteLatency, ReconcileOutcomes, Refunds)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
