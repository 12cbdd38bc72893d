// Package observability collects Prometheus metrics for the service.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the registry and the application's instruments.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	paymentsCreated     *prometheus.CounterVec
	paymentsCorrected   prometheus.Counter
	correctionConflicts prometheus.Counter
}

// NewMetrics initialises the registry and base instruments.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clubledger_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clubledger_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clubledger_payments_created_total",
		Help: "Payments recorded, by payment method.",
	}, []string{"method"})
	corrected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clubledger_payments_corrected_total",
		Help: "Successful payment corrections.",
	})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clubledger_payment_correction_conflicts_total",
		Help: "Correction attempts rejected on a stale version token.",
	})
	registry.MustRegister(requests, duration, created, corrected, conflicts)
	return &Metrics{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:       requests,
		requestDuration:     duration,
		paymentsCreated:     created,
		paymentsCorrected:   corrected,
		correctionConflicts: conflicts,
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

// Middleware records request count and duration for every HTTP request.
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

// PaymentCreated counts a recorded payment.
func (m *Metrics) PaymentCreated(method string) {
	if m != nil {
		m.paymentsCreated.WithLabelValues(method).Inc()
	}
}

// PaymentCorrected counts a successful correction.
func (m *Metrics) PaymentCorrected() {
	if m != nil {
		m.paymentsCorrected.Inc()
	}
}

// CorrectionConflict counts a version-token rejection.
func (m *Metrics) CorrectionConflict() {
	if m != nil {
		m.correctionConflicts.Inc()
	}
}

// Registerer exposes the registry for custom instruments.
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
