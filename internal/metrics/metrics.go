// Package metrics exposes the Proxy Executor and Collection Runner's
// operational counters/histograms as Prometheus collectors. A nil
// *Metrics is valid everywhere a caller accepts one — every Record/Set
// method is a no-op on a nil receiver, matching the nil-safe
// *history.Recorder convention used elsewhere in this tree.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var defaultDurationBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

// Metrics wraps one Prometheus registry's worth of collectors for a
// single process: dispatch counts/durations, redirect-hop and
// truncation events from the Proxy Executor (spec.md §4.F), script
// timeouts from the Script Sandbox (§4.E), and run/iteration counters
// from the Collection Runner (§4.I).
type Metrics struct {
	registry *prometheus.Registry

	dispatchTotal      *prometheus.CounterVec
	dispatchDuration   *prometheus.HistogramVec
	redirectHops       prometheus.Histogram
	redirectOverflows  prometheus.Counter
	responseTruncated  prometheus.Counter
	scriptTimeoutTotal *prometheus.CounterVec

	runsTotal          *prometheus.CounterVec
	runIterationTotal  *prometheus.CounterVec
	iterationDuration  prometheus.Histogram
	activeRuns         prometheus.Gauge
}

// New builds a Metrics instance registered under namespace (e.g.
// "courier"), along with the standard Go/process collectors.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,

		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_dispatch_total",
			Help:      "Total requests dispatched by the Proxy Executor, by method and outcome.",
		}, []string{"method", "outcome"}),

		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proxy_dispatch_duration_milliseconds",
			Help:      "Wall-clock duration of a dispatched request, including any redirect hops.",
			Buckets:   defaultDurationBuckets,
		}, []string{"method"}),

		redirectHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proxy_redirect_hops",
			Help:      "Number of redirect hops followed per dispatched request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		}),

		redirectOverflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_redirect_overflow_total",
			Help:      "Dispatches that hit the redirect hop limit before resolving.",
		}),

		responseTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_response_truncated_total",
			Help:      "Responses whose body exceeded the capture cap and was truncated.",
		}),

		scriptTimeoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_timeout_total",
			Help:      "Script invocations that exceeded their wall-clock timeout, by script type.",
		}, []string{"script_type"}),

		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runner_runs_total",
			Help:      "Collection runs that reached a terminal state, by status.",
		}, []string{"status"}),

		runIterationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runner_iterations_total",
			Help:      "Collection Runner iterations executed, by pass/fail outcome.",
		}, []string{"outcome"}),

		iterationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "runner_request_duration_milliseconds",
			Help:      "Wall-clock duration of one Collection Runner request within a run.",
			Buckets:   defaultDurationBuckets,
		}),

		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runner_active_runs",
			Help:      "Collection runs currently in the RUNNING state.",
		}),
	}

	registry.MustRegister(
		m.dispatchTotal, m.dispatchDuration, m.redirectHops, m.redirectOverflows,
		m.responseTruncated, m.scriptTimeoutTotal, m.runsTotal, m.runIterationTotal,
		m.iterationDuration, m.activeRuns,
	)
	return m
}

// Handler serves the registry in the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics not initialized", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDispatch records one Proxy Executor dispatch: its outcome
// ("ok" or one of the proxy.ErrorCode values), duration, redirect hop
// count, and whether it overflowed the hop limit or had its body
// truncated.
func (m *Metrics) RecordDispatch(method, outcome string, durationMs int64, redirectHops int, overflow, truncated bool) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(method, outcome).Inc()
	m.dispatchDuration.WithLabelValues(method).Observe(float64(durationMs))
	m.redirectHops.Observe(float64(redirectHops))
	if overflow {
		m.redirectOverflows.Inc()
	}
	if truncated {
		m.responseTruncated.Inc()
	}
}

// RecordScriptTimeout records a PRE_REQUEST or POST_RESPONSE script
// exceeding its wall-clock budget.
func (m *Metrics) RecordScriptTimeout(scriptType string) {
	if m == nil {
		return
	}
	m.scriptTimeoutTotal.WithLabelValues(scriptType).Inc()
}

// RecordRunStarted increments the gauge of in-flight Collection Runner
// runs; RecordRunCompleted decrements it and records the terminal status.
func (m *Metrics) RecordRunStarted() {
	if m == nil {
		return
	}
	m.activeRuns.Inc()
}

func (m *Metrics) RecordRunCompleted(status string) {
	if m == nil {
		return
	}
	m.activeRuns.Dec()
	m.runsTotal.WithLabelValues(status).Inc()
}

// RecordIteration records one Collection Runner request's outcome and
// duration (spec.md §4.I: one entry per request per iteration).
func (m *Metrics) RecordIteration(passed bool, durationMs int64) {
	if m == nil {
		return
	}
	outcome := "passed"
	if !passed {
		outcome = "failed"
	}
	m.runIterationTotal.WithLabelValues(outcome).Inc()
	m.iterationDuration.Observe(float64(durationMs))
}
