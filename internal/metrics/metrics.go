// Package metrics holds the Prometheus instruments of the setlog server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests         *prometheus.CounterVec
	CounterImports          *prometheus.CounterVec
	CounterSetsImported     prometheus.Counter
	CounterWorkoutsFinished prometheus.Counter
	CounterSessionChanges   prometheus.Counter

	// gauges
	GaugeEventSubscribers prometheus.Gauge

	// histograms
	HistRequestDuration prometheus.Histogram
}

// NewTestManager returns a Manager on a private registry.
func NewTestManager() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("setlog", "test", reg), reg
}

// SetupPrometheus creates a registry with the build, runtime and process
// collectors plus any extra ones.
func SetupPrometheus(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(extra...)
	return reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "The total number of HTTP requests",
		}, []string{"method", "status"}),
		CounterImports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "imports_total",
			Help:      "The total number of export imports",
		}, []string{"source", "status"}),
		CounterSetsImported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sets_imported_total",
			Help:      "Working sets stored by imports",
		}),
		CounterWorkoutsFinished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workouts_finished_total",
			Help:      "Finished live workouts",
		}),
		CounterSessionChanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "session_changes_total",
			Help:      "Persisted live session transitions",
		}),
		GaugeEventSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "event_subscribers",
			Help:      "Open session event streams",
		}),
		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
	}
}
