package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "amokanban"

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeInvalid = "invalid"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	crmRequests        *prometheus.CounterVec
	crmRequestDuration *prometheus.HistogramVec
	leadsNormalized    *prometheus.CounterVec
	bookingsForwarded  *prometheus.CounterVec
	eventsPublished    *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
}

func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		crmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "crm_requests_total",
				Help:      "AmoCRM API calls by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		crmRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "crm_request_duration_seconds",
				Help:      "AmoCRM API call latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		leadsNormalized: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "leads_normalized_total",
				Help:      "Leads converted to bookings",
			},
			[]string{"branch"},
		),
		bookingsForwarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bookings_forwarded_total",
				Help:      "Bookings sent to the kanban backend",
			},
			[]string{"branch", "outcome"},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Kafka events by type and outcome",
			},
			[]string{"event_type", "outcome"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lead_cache_lookups_total",
				Help:      "Lead cache lookups by result",
			},
			[]string{"result"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Inbound HTTP requests by route and status class",
			},
			[]string{"route", "status"},
		),
	}
}

// NewWithRuntime registers the Go runtime and process collectors as well.
func NewWithRuntime() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(registry)
}

func (m *Metrics) ObserveCRMRequest(endpoint string, err error, took time.Duration) {
	if m == nil {
		return
	}
	m.crmRequests.WithLabelValues(endpoint, outcome(err)).Inc()
	m.crmRequestDuration.WithLabelValues(endpoint).Observe(took.Seconds())
}

func (m *Metrics) AddLeadsNormalized(branch string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.leadsNormalized.WithLabelValues(branch).Add(float64(n))
}

func (m *Metrics) IncBookingForwarded(branch, result string) {
	if m == nil {
		return
	}
	m.bookingsForwarded.WithLabelValues(branch, result).Inc()
}

func (m *Metrics) IncEventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType, outcome(err)).Inc()
}

func (m *Metrics) IncCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) IncHTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, statusClass(status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
