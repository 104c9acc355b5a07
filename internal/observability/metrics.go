package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/fleetledger/fleetledger/internal/jobs"
	"github.com/fleetledger/fleetledger/internal/reports"
)

// Metrics collects the Prometheus metrics of the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reports         *ReportMetrics
	jobs            *jobmetrics.Metrics
}

// NewMetrics initialises the registry with HTTP, report and job collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetledger_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleetledger_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(requests, duration)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		reports:         newReportMetrics(registry),
		jobs:            jobmetrics.NewMetrics(registry),
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records every HTTP request.
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

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Reports returns the report build observer.
func (m *Metrics) Reports() *ReportMetrics {
	if m == nil {
		return nil
	}
	return m.reports
}

// Jobs returns the background job collectors.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// ReportMetrics implements reports.BuildObserver.
type ReportMetrics struct {
	builds   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	warnings *prometheus.CounterVec
}

var _ reports.BuildObserver = (*ReportMetrics)(nil)

func newReportMetrics(registerer prometheus.Registerer) *ReportMetrics {
	builds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetledger_report_builds_total",
		Help: "Report builds by kind and outcome.",
	}, []string{"kind", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleetledger_report_build_duration_seconds",
		Help:    "Time to fetch, normalize and assemble a report.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"kind"})
	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetledger_normalize_warnings_total",
		Help: "Source records normalized with missing or inconsistent fields.",
	}, []string{"source"})
	registerer.MustRegister(builds, duration, warnings)
	return &ReportMetrics{builds: builds, duration: duration, warnings: warnings}
}

// ObserveBuild records one report build.
func (m *ReportMetrics) ObserveBuild(kind reports.Kind, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.builds.WithLabelValues(string(kind), buildStatus(err)).Inc()
	m.duration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// ObserveWarnings counts normalization warnings for a source.
func (m *ReportMetrics) ObserveWarnings(source reports.SourceKind, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.warnings.WithLabelValues(string(source)).Add(float64(count))
}

func buildStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, reports.ErrSourceFetch):
		return "source_error"
	case errors.Is(err, reports.ErrInvalidWindow), errors.Is(err, reports.ErrUnknownReportKind), errors.Is(err, reports.ErrUnknownSortKey):
		return "rejected"
	default:
		return "failure"
	}
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
