// Package metrics provides Prometheus instrumentation for tokenlaunch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enabled     bool
	serviceName string
	registry    *prometheus.Registry

	// Run metrics
	runTotal *prometheus.CounterVec

	// Stage metrics
	deployTotal   *prometheus.CounterVec
	verifyTotal   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
)

// Init initializes the metrics system. Each call starts a fresh registry.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}

	registry = prometheus.NewRegistry()
	factory := promauto.With(registry)

	runTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenlaunch_run_total",
			Help: "Total number of launch runs by final result",
		},
		[]string{"result"},
	)

	deployTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenlaunch_deploy_total",
			Help: "Total number of contract deployments",
		},
		[]string{"status"},
	)

	verifyTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenlaunch_verify_total",
			Help: "Total number of explorer verification submissions",
		},
		[]string{"status"},
	)

	// Buckets cover sub-second stages up to the multi-minute indexing delay
	stageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tokenlaunch_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name for metric labels.
func ServiceName() string {
	return serviceName
}

// Gatherer returns the registry backing the metrics, or nil when disabled.
func Gatherer() prometheus.Gatherer {
	if !enabled {
		return nil
	}
	return registry
}
