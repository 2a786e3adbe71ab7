package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application metrics
type Metrics struct {
	// Inbound chat update metrics
	UpdateTotal    *prometheus.CounterVec
	UpdateDuration *prometheus.HistogramVec

	// Torrent daemon RPC metrics
	DaemonRequestTotal    *prometheus.CounterVec
	DaemonRequestDuration *prometheus.HistogramVec

	// Event publishing metrics
	EventPublishTotal *prometheus.CounterVec
}

// Global metrics instance with mutex for thread safety
var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// NewMetrics creates a new Metrics instance with all required metrics
func NewMetrics() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		UpdateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of processed chat updates",
		}, []string{"kind", "status"}),

		UpdateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bot_update_duration_seconds",
			Help:    "Chat update handling duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "status"}),

		DaemonRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daemon_requests_total",
			Help: "Total number of torrent daemon RPC calls",
		}, []string{"method", "status"}),

		DaemonRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "daemon_request_duration_seconds",
			Help:    "Torrent daemon RPC call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),

		EventPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_publish_total",
			Help: "Total number of event publish operations",
		}, []string{"event_type", "status"}),
	}

	registerMetrics(m)
	globalMetrics = m
	return m
}

// registerMetrics registers all metrics with the default registry
func registerMetrics(m *Metrics) {
	registerOrGet(m.UpdateTotal)
	registerOrGet(m.UpdateDuration)
	registerOrGet(m.DaemonRequestTotal)
	registerOrGet(m.DaemonRequestDuration)
	registerOrGet(m.EventPublishTotal)
}

// registerOrGet tries to register a metric, returns the existing one if already registered
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}
