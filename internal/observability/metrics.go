package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sessionOps      *prometheus.CounterVec
	guardDecisions  *prometheus.CounterVec
	restoreDuration prometheus.Histogram
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gestor_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gestor_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	sessionOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gestor_session_operations_total",
		Help: "Session operations (login, register, logout, restore) by outcome.",
	}, []string{"operation", "outcome"})
	guardDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gestor_guard_decisions_total",
		Help: "Guard verdicts by guard, resource and outcome.",
	}, []string{"guard", "resource", "outcome"})
	restoreDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gestor_session_restore_duration_seconds",
		Help:    "Time spent restoring the persisted session at start-up.",
		Buckets: prometheus.DefBuckets,
	})
	registry.MustRegister(requests, duration, sessionOps, guardDecisions, restoreDuration)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		sessionOps:      sessionOps,
		guardDecisions:  guardDecisions,
		restoreDuration: restoreDuration,
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

// Middleware records metrics for every HTTP request.
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

// ObserveSessionOp counts a settled session operation.
func (m *Metrics) ObserveSessionOp(operation, outcome string) {
	if m == nil {
		return
	}
	m.sessionOps.WithLabelValues(operation, outcome).Inc()
}

// ObserveGuard counts a guard verdict.
func (m *Metrics) ObserveGuard(guard, resource, outcome string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(guard, resource, outcome).Inc()
}

// ObserveRestore records how long the start-up restore took.
func (m *Metrics) ObserveRestore(d time.Duration) {
	if m == nil {
		return
	}
	m.restoreDuration.Observe(d.Seconds())
}

// Registerer exposes the registry for custom metrics.
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
