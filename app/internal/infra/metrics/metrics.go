package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gallery"

// Recorder owns a dedicated registry with the HTTP and storefront collectors.
type Recorder struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	ordersPlaced        *prometheus.CounterVec
	webhookEvents       *prometheus.CounterVec
	reservationsExpired prometheus.Counter
	notificationsSent   *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Orders placed at checkout, by payment provider.",
		}, []string{"provider"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhooks",
			Name:      "events_total",
			Help:      "Payment webhook events, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		reservationsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "reservations_expired_total",
			Help:      "Pending orders cancelled because their reservation expired.",
		}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Notification events handled, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	r.registry.MustRegister(
		r.httpInFlight,
		r.httpRequests,
		r.httpDuration,
		r.ordersPlaced,
		r.webhookEvents,
		r.reservationsExpired,
		r.notificationsSent,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler exposes the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) OrderPlaced(provider string) {
	r.ordersPlaced.WithLabelValues(strings.ToLower(provider)).Inc()
}

func (r *Recorder) WebhookProcessed(provider, outcome string) {
	r.webhookEvents.WithLabelValues(strings.ToLower(provider), outcome).Inc()
}

func (r *Recorder) ReservationsExpired(n int) {
	if n > 0 {
		r.reservationsExpired.Add(float64(n))
	}
}

func (r *Recorder) NotificationSent(kind, outcome string) {
	r.notificationsSent.WithLabelValues(kind, outcome).Inc()
}

// Instrument records request count and latency labelled by chi route pattern.
func (r *Recorder) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/metrics" {
			next.ServeHTTP(w, req)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		r.httpInFlight.Inc()
		defer r.httpInFlight.Dec()

		next.ServeHTTP(rec, req)

		route := routePattern(req)
		method := strings.ToUpper(req.Method)
		r.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		r.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(req *http.Request) string {
	if rctx := chi.RouteContext(req.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
