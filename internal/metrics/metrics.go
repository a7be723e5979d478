// Package metrics exposes Prometheus collectors for the engine's own
// activity: task throughput, task duration, and how many runs are in
// flight. Grounded on cklxx-elephant.ai's internal/orchestrator/metrics.go
// (registerer-aware constructor, reuse-on-AlreadyRegistered, one Metrics
// struct owning every collector).
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report engine run activity.
type Metrics struct {
	taskDuration *prometheus.HistogramVec
	taskFailures *prometheus.CounterVec
	tasksTotal   *prometheus.CounterVec
	runsActive   prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// Default returns the package-level metrics instance registered with the
// global Prometheus registry. The collectors are created only once to avoid
// duplicate registration panics when the engine is instantiated multiple
// times (e.g. in unit tests).
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNew(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNew constructs a Metrics instance using the provided registerer. A nil
// registerer falls back to prometheus.DefaultRegisterer. Registration errors
// panic, mirroring promauto's semantics, except for AlreadyRegisteredError
// where the existing collector is reused.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	taskDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "depgraph",
			Subsystem: "executor",
			Name:      "task_duration_seconds",
			Help:      "Duration of a single task's tool invocation.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"agent", "status"},
	)
	taskFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "depgraph",
			Subsystem: "executor",
			Name:      "task_failures_total",
			Help:      "Total number of tasks that failed.",
		},
		[]string{"agent", "reason"},
	)
	tasksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "depgraph",
			Subsystem: "executor",
			Name:      "tasks_total",
			Help:      "Total number of tasks dispatched, by terminal status.",
		},
		[]string{"agent", "status"},
	)
	runsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "depgraph",
			Subsystem: "engine",
			Name:      "runs_active",
			Help:      "Number of runs currently being executed by the engine.",
		},
	)

	collectors := []prometheus.Collector{taskDuration, taskFailures, tasksTotal, runsActive}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch target := c.(type) {
				case *prometheus.HistogramVec:
					taskDuration = already.ExistingCollector.(*prometheus.HistogramVec)
				case *prometheus.CounterVec:
					switch target { //nolint:exhaustive
					case taskFailures:
						taskFailures = already.ExistingCollector.(*prometheus.CounterVec)
					case tasksTotal:
						tasksTotal = already.ExistingCollector.(*prometheus.CounterVec)
					}
				case prometheus.Gauge:
					runsActive = already.ExistingCollector.(prometheus.Gauge)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		taskDuration: taskDuration,
		taskFailures: taskFailures,
		tasksTotal:   tasksTotal,
		runsActive:   runsActive,
	}
}

// ObserveTaskDuration records the wall time spent invoking a task's tool.
func (m *Metrics) ObserveTaskDuration(agent, status string, d time.Duration) {
	if m == nil || m.taskDuration == nil {
		return
	}
	m.taskDuration.WithLabelValues(agent, status).Observe(d.Seconds())
}

// IncTaskFailure increments the failure counter for an agent and reason.
func (m *Metrics) IncTaskFailure(agent, reason string) {
	if m == nil || m.taskFailures == nil {
		return
	}
	m.taskFailures.WithLabelValues(agent, reason).Inc()
}

// IncTaskCompleted increments the terminal-status counter for a task.
func (m *Metrics) IncTaskCompleted(agent, status string) {
	if m == nil || m.tasksTotal == nil {
		return
	}
	m.tasksTotal.WithLabelValues(agent, status).Inc()
}

// IncActiveRuns marks a run as started.
func (m *Metrics) IncActiveRuns() {
	if m == nil || m.runsActive == nil {
		return
	}
	m.runsActive.Inc()
}

// DecActiveRuns marks a run as finished, successfully or not.
func (m *Metrics) DecActiveRuns() {
	if m == nil || m.runsActive == nil {
		return
	}
	m.runsActive.Dec()
}
