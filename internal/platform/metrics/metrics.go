// Package metrics exposes Prometheus HTTP and business counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build independent instances.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ordersTotal     *prometheus.CounterVec
	paymentsTotal   *prometheus.CounterVec
	emailsTotal     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodrient_http_requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "foodrient_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		ordersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodrient_orders_total",
			Help: "Orders created by kind (single, bulk, group).",
		}, []string{"kind"}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodrient_payments_total",
			Help: "Settled payments by outcome.",
		}, []string{"outcome"}),
		emailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodrient_emails_total",
			Help: "Outbound emails by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal, m.requestDuration, m.ordersTotal, m.paymentsTotal, m.emailsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency labelled by the chi route
// pattern, so /products/{id} is one series rather than one per product.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) OrderCreated(kind string) { m.ordersTotal.WithLabelValues(kind).Inc() }

func (m *Metrics) PaymentSettled(outcome string) { m.paymentsTotal.WithLabelValues(outcome).Inc() }

func (m *Metrics) EmailSent(ok bool) {
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.emailsTotal.WithLabelValues(result).Inc()
}

// Recorder is the subset services depend on. A nil *Metrics is not valid;
// use Nop in tests.
type Recorder interface {
	OrderCreated(kind string)
	PaymentSettled(outcome string)
	EmailSent(ok bool)
}

type nop struct{}

func (nop) OrderCreated(string)   {}
func (nop) PaymentSettled(string) {}
func (nop) EmailSent(bool)        {}

// Nop discards every observation.
var Nop Recorder = nop{}
