// Package metrics exposes Prometheus collectors describing build activity.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "foundry"

// Metrics holds the collectors the executor and build service report to.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	taskDuration *prometheus.HistogramVec
	taskOutcomes *prometheus.CounterVec
	tasksRunning prometheus.Gauge
	builds       *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg and panics on conflicting
// registrations. Collectors already registered under the same name are reused.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "executor",
				Name:      "task_duration_seconds",
				Help:      "Wall time spent in task bodies, including up-to-date checks.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"plugin", "status"},
		),
		taskOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "executor",
				Name:      "tasks_total",
				Help:      "Tasks that reached a terminal state, by status.",
			},
			[]string{"project", "status"},
		),
		tasksRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "executor",
				Name:      "tasks_running",
				Help:      "Task bodies currently executing.",
			},
		),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Build invocations by outcome.",
			},
			[]string{"outcome"},
		),
	}

	m.taskDuration = register(reg, m.taskDuration)
	m.taskOutcomes = register(reg, m.taskOutcomes)
	m.tasksRunning = register(reg, m.tasksRunning)
	m.builds = register(reg, m.builds)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// TaskStarted marks a task body as running.
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksRunning.Inc()
}

// TaskFinished records a task that ran, or was found up to date.
func (m *Metrics) TaskFinished(pluginName, projectName, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.tasksRunning.Dec()
	m.taskDuration.WithLabelValues(pluginName, status).Observe(duration.Seconds())
	m.taskOutcomes.WithLabelValues(projectName, status).Inc()
}

// TaskSkipped records a task blocked by an upstream failure.
func (m *Metrics) TaskSkipped(projectName string) {
	if m == nil {
		return
	}
	m.taskOutcomes.WithLabelValues(projectName, "skipped").Inc()
}

// BuildFinished records the outcome of a whole invocation.
func (m *Metrics) BuildFinished(success bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if success {
		outcome = "successful"
	}
	m.builds.WithLabelValues(outcome).Inc()
}

// WriteTextfile dumps every metric gathered by g to path in the text exposition format.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
