package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the catalog services.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	treeBuilds       prometheus.Histogram
	treeNodes        prometheus.Gauge
	treeDiagnostics  *prometheus.CounterVec
	apiClientLatency *prometheus.HistogramVec
}

// NewMetrics initialises the registry with HTTP and category tree metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	treeBuilds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_category_tree_build_seconds",
		Help:    "Time spent building the category forest.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	})
	treeNodes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_category_tree_nodes",
		Help: "Categories placed by the most recent tree build.",
	})
	treeDiagnostics := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_category_tree_diagnostics_total",
		Help: "Category records repaired while building the tree, by kind.",
	}, []string{"kind"})
	apiLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_api_client_request_duration_seconds",
		Help:    "Latency of admin calls to the catalog API by operation and outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	registry.MustRegister(requests, duration, treeBuilds, treeNodes, treeDiagnostics, apiLatency)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		treeBuilds:       treeBuilds,
		treeNodes:        treeNodes,
		treeDiagnostics:  treeDiagnostics,
		apiClientLatency: apiLatency,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveTreeBuild records one category tree build.
func (m *Metrics) ObserveTreeBuild(elapsed time.Duration, nodes int, diagnostics map[string]int) {
	if m == nil {
		return
	}
	m.treeBuilds.Observe(elapsed.Seconds())
	m.treeNodes.Set(float64(nodes))
	for kind, n := range diagnostics {
		if n > 0 {
			m.treeDiagnostics.WithLabelValues(kind).Add(float64(n))
		}
	}
}

// ObserveAPICall records the latency of an outgoing catalog API call.
func (m *Metrics) ObserveAPICall(operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.apiClientLatency.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
