// Package metrics provides Prometheus instrumentation for explorer API calls.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mu       sync.RWMutex
	enabled  bool
	registry *prometheus.Registry

	// Outbound HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Smart contract operation metrics
	operationTotal    *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
)

// Init initializes the metrics system. Calling it again replaces the
// registry, so previously recorded values are discarded.
func Init(enabledFlag bool, svcName string) {
	mu.Lock()
	defer mu.Unlock()

	enabled = enabledFlag

	if !enabled {
		registry = nil
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)
	constLabels := prometheus.Labels{"service": svcName}

	// HTTP request counter
	httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "explorer_http_requests_total",
			Help:        "Total number of HTTP requests sent to the explorer API",
			ConstLabels: constLabels,
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration histogram
	httpDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "explorer_http_request_duration_seconds",
			Help:        "Explorer API request latency in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method", "path"},
	)

	// Smart contract operation counter
	operationTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "smartcontract_operation_total",
			Help:        "Total number of smart contract operations",
			ConstLabels: constLabels,
		},
		[]string{"operation", "status"},
	)

	// Smart contract operation duration
	operationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "smartcontract_operation_duration_seconds",
			Help:        "Smart contract operation latency in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Gatherer returns the registry holding the collected metrics, or nil when disabled.
func Gatherer() prometheus.Gatherer {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		return nil
	}
	return registry
}

// WriteTextfile writes the collected metrics to path in the Prometheus text
// format, for pickup by node_exporter's textfile collector.
func WriteTextfile(path string) error {
	g := Gatherer()
	if g == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, g)
}
