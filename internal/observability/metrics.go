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

	eventsPublished  *prometheus.CounterVec
	subscriberPanics *prometheus.CounterVec
	authzDenials     prometheus.Counter
	refreshTotal     *prometheus.CounterVec
	refreshDuration  prometheus.Histogram
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_events_published_total",
		Help: "Events published on the in-process bus by event type.",
	}, []string{"event"})
	panics := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_subscriber_panics_total",
		Help: "Subscriber callbacks that panicked during delivery.",
	}, []string{"component"})
	denials := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meridian_authz_denials_total",
		Help: "Authorization checks rejected by the access control layer.",
	})
	refreshTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_dashboard_refresh_total",
		Help: "Dashboard refresh cycles by result.",
	}, []string{"result"})
	refreshDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "meridian_dashboard_refresh_duration_seconds",
		Help:    "Duration of dashboard metric recomputation.",
		Buckets: prometheus.DefBuckets,
	})
	registry.MustRegister(requests, duration, events, panics, denials, refreshTotal, refreshDuration)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		eventsPublished:  events,
		subscriberPanics: panics,
		authzDenials:     denials,
		refreshTotal:     refreshTotal,
		refreshDuration:  refreshDuration,
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

// EventPublished counts one bus publish for the named event type.
func (m *Metrics) EventPublished(event string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(event).Inc()
}

// SubscriberPanicked counts a recovered subscriber panic for a component.
func (m *Metrics) SubscriberPanicked(component string) {
	if m == nil {
		return
	}
	m.subscriberPanics.WithLabelValues(component).Inc()
}

// AuthzDenied counts one denied authorization check.
func (m *Metrics) AuthzDenied() {
	if m == nil {
		return
	}
	m.authzDenials.Inc()
}

// RefreshObserved records one dashboard refresh cycle.
func (m *Metrics) RefreshObserved(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(result).Inc()
	m.refreshDuration.Observe(elapsed.Seconds())
}

// Registerer exposes the registry for custom metric registration.
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
