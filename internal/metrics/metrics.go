package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   prometheus.CounterVec
	HTTPRequestDuration prometheus.HistogramVec

	// Listing cache metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	// Relay metrics
	WSActiveConnections prometheus.Gauge
	WSMessagesTotal     prometheus.CounterVec

	// Graph mutation metrics
	GraphMutationsTotal prometheus.CounterVec

	// Reference scrub metrics
	ScrubRemovalsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			CacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Listing cache hits",
				},
				[]string{"cache"},
			),
			CacheMissesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Listing cache misses",
				},
				[]string{"cache"},
			),
			WSActiveConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "ws_active_connections",
					Help: "Currently connected WebSocket clients",
				},
			),
			WSMessagesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ws_messages_total",
					Help: "WebSocket messages by direction",
				},
				[]string{"direction"},
			),
			GraphMutationsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "graph_mutations_total",
					Help: "Social graph mutations by operation",
				},
				[]string{"operation"},
			),
			ScrubRemovalsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "scrub_removals_total",
					Help: "References removed by account-deletion scrubs",
				},
				[]string{"kind"},
			),
		}
	})

	return instance
}

// Get returns the metrics instance, initializing it if needed
func Get() *Metrics {
	return Initialize()
}
