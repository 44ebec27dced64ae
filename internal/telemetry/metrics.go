// Package telemetry mirrors the streaming aggregator's statistics into
// Prometheus collectors so a long-running engine process can be
// scraped externally without polling snapshots.
package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors the engine reports through.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ErrorsTotal      *prometheus.CounterVec
	BytesReceived    prometheus.Counter
	ActiveVUs        prometheus.Gauge
	RunInfo          *prometheus.GaugeVec
}

// New creates a Metrics instance registered against the default registry.
func New(planName string) *Metrics {
	return NewWithRegistry(planName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against a
// caller-supplied registry (tests use a private one to avoid collisions).
func NewWithRegistry(planName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_requests_total",
				Help: "Total number of requests executed by the engine.",
			},
			[]string{"thread_group", "request", "status_class"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulse_request_duration_seconds",
				Help:    "Request duration in seconds, as observed by virtual users.",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"thread_group", "request"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_errors_total",
				Help: "Total number of failed requests (network error or failed assertion).",
			},
			[]string{"thread_group", "request", "reason"},
		),
		BytesReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pulse_bytes_received_total",
				Help: "Total response bytes received.",
			},
		),
		ActiveVUs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulse_active_virtual_users",
				Help: "Current number of running virtual users.",
			},
		),
		RunInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pulse_run_info",
				Help: "Static information about the current run.",
			},
			[]string{"plan"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.ErrorsTotal,
			m.BytesReceived,
			m.ActiveVUs,
			m.RunInfo,
		)
	}

	m.RunInfo.WithLabelValues(planName).Set(1)

	return m
}

// RecordRequest mirrors one aggregator.record call: it updates the
// request counter, duration histogram, error counter, and byte
// counter for a single completed request.
func (m *Metrics) RecordRequest(threadGroup, request string, statusCode int, elapsed time.Duration, success bool, sizeBytes int, failureReason string) {
	statusClass := statusClassOf(statusCode)
	m.RequestsTotal.WithLabelValues(threadGroup, request, statusClass).Inc()
	m.RequestDuration.WithLabelValues(threadGroup, request).Observe(elapsed.Seconds())
	m.BytesReceived.Add(float64(sizeBytes))
	if !success {
		m.ErrorsTotal.WithLabelValues(threadGroup, request, failureReason).Inc()
	}
}

// SetActiveVUs sets the current active-virtual-user gauge.
func (m *Metrics) SetActiveVUs(count int64) {
	m.ActiveVUs.Set(float64(count))
}

func statusClassOf(statusCode int) string {
	if statusCode <= 0 {
		return "network_error"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}

// Handler returns an HTTP handler exposing the default registry's
// collectors in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ListenAndServe serves the metrics handler on addr until the process
// exits or the listener errors.
func ListenAndServe(addr string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	return http.ListenAndServe(addr, mux)
}

// Global metrics instance, for callers that do not build their own.
var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance.
func Init(planName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(planName)
	}
	return globalMetrics
}

// Global returns the global metrics instance, initializing it with an
// "unknown" plan name if necessary.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("unknown")
	}
	return globalMetrics
}
