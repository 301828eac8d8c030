package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fieldmgr"

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	usersCreated    prometheus.Counter
	resourceOps     *prometheus.CounterVec
	gateRejections  *prometheus.CounterVec
	rateLimited     prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// NewPrometheus creates a recorder with its own registry, including the
// standard Go and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()

	p := &PrometheusRecorder{
		registry: reg,
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_created_total",
			Help:      "Users registered.",
		}),
		resourceOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_operations_total",
			Help:      "Successful resource mutations by kind and operation.",
		}, []string{"kind", "op"}),
		gateRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_gate_rejections_total",
			Help:      "Requests rejected by the identity gate.",
		}, []string{"reason"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.usersCreated,
		p.resourceOps,
		p.gateRejections,
		p.rateLimited,
		p.requestDuration,
	)

	return p
}

// Handler returns the /metrics exposition handler.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// IncUserCreated increments the user created counter.
func (p *PrometheusRecorder) IncUserCreated() {
	p.usersCreated.Inc()
}

// IncResourceCreated increments the created counter for kind.
func (p *PrometheusRecorder) IncResourceCreated(kind string) {
	p.resourceOps.WithLabelValues(kind, "create").Inc()
}

// IncResourceUpdated increments the updated counter for kind.
func (p *PrometheusRecorder) IncResourceUpdated(kind string) {
	p.resourceOps.WithLabelValues(kind, "update").Inc()
}

// IncResourceDeleted increments the deleted counter for kind.
func (p *PrometheusRecorder) IncResourceDeleted(kind string) {
	p.resourceOps.WithLabelValues(kind, "delete").Inc()
}

// IncGateRejected increments the gate rejection counter for reason.
func (p *PrometheusRecorder) IncGateRejected(reason string) {
	p.gateRejections.WithLabelValues(reason).Inc()
}

// IncRateLimited increments the rate limited counter.
func (p *PrometheusRecorder) IncRateLimited() {
	p.rateLimited.Inc()
}

// ObserveRequest records request latency by method and status code.
func (p *PrometheusRecorder) ObserveRequest(method string, status int, duration time.Duration) {
	p.requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(duration.Seconds())
}
