package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal *prometheus.CounterVec

	// Relay metrics
	RelayConnections       prometheus.Gauge
	RelaySubscriptions     prometheus.Gauge
	RelayMessagesPublished *prometheus.CounterVec
	RelayMessagesReceived  *prometheus.CounterVec
	RelayClientsDropped    prometheus.Counter

	// Interaction metrics
	InteractionsTotal         *prometheus.CounterVec
	NotificationWriteFailures prometheus.Counter
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"endpoint", "method"},
			),

			RelayConnections: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "relay_connections",
				Help: "Number of open websocket connections",
			}),
			RelaySubscriptions: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "relay_subscriptions",
				Help: "Number of (client, topic) subscriptions",
			}),
			RelayMessagesPublished: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "relay_messages_published_total",
					Help: "Frames enqueued to clients, by message type",
				},
				[]string{"type"},
			),
			RelayMessagesReceived: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "relay_messages_received_total",
					Help: "Frames received from clients, by message type",
				},
				[]string{"type"},
			),
			RelayClientsDropped: promauto.NewCounter(prometheus.CounterOpts{
				Name: "relay_clients_dropped_total",
				Help: "Clients disconnected because their send buffer was full",
			}),

			InteractionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "interactions_total",
					Help: "Completed social interactions, by kind",
				},
				[]string{"kind"},
			),
			NotificationWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "notification_write_failures_total",
				Help: "Notifications that could not be stored after their interaction committed",
			}),
		}
	})
	return instance
}

// Get returns the metrics singleton, creating it on first use
func Get() *Metrics {
	return Initialize()
}
