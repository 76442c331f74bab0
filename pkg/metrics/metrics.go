// Package metrics registers Prometheus instrumentation for the workflow engine.
package metrics

import (
	"sync"
	"time"

	"github.com/mundotango/compas/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	executionsTotalCounter     *prometheus.CounterVec
	stepsTotalCounter          *prometheus.CounterVec
	stepDurationMetric         prometheus.Histogram
	executionDurationMetric    prometheus.Histogram
	activeExecutionsGauge      prometheus.Gauge
	scheduledWorkflowsGauge    prometheus.Gauge
)

// Init registers metrics on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		executionsTotalCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compas_executions_total",
				Help: "Total number of workflow execution terminal transitions by status.",
			},
			[]string{"status"},
		)

		stepsTotalCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compas_steps_total",
				Help: "Total number of step terminal updates by status.",
			},
			[]string{"status"},
		)

		stepDurationMetric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "compas_step_duration_seconds",
				Help:    "Duration of step interpreter calls in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		)

		executionDurationMetric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "compas_execution_duration_seconds",
				Help:    "End-to-end workflow execution duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		)

		activeExecutionsGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "compas_active_executions",
				Help: "Number of executions currently walking their step graph.",
			},
		)

		scheduledWorkflowsGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "compas_scheduled_workflows",
				Help: "Number of workflows with an installed cron schedule.",
			},
		)

		prometheus.MustRegister(
			executionsTotalCounter,
			stepsTotalCounter,
			stepDurationMetric,
			executionDurationMetric,
			activeExecutionsGauge,
			scheduledWorkflowsGauge,
		)

		// Ensure counter vectors are visible at /metrics before first increment.
		for _, status := range []models.ExecutionStatus{
			models.ExecutionStatusCompleted,
			models.ExecutionStatusFailed,
			models.ExecutionStatusCancelled,
		} {
			executionsTotalCounter.WithLabelValues(string(status))
		}

		for _, status := range []models.LogStatus{
			models.LogStatusCompleted,
			models.LogStatusFailed,
		} {
			stepsTotalCounter.WithLabelValues(string(status))
		}
	})
}

func IncExecutionStatus(status models.ExecutionStatus) {
	Init()
	executionsTotalCounter.WithLabelValues(string(status)).Inc()
}

func IncStepStatus(status models.LogStatus) {
	Init()
	stepsTotalCounter.WithLabelValues(string(status)).Inc()
}

func ObserveStepDuration(d time.Duration) {
	Init()
	stepDurationMetric.Observe(d.Seconds())
}

func ObserveExecutionDuration(d time.Duration) {
	Init()
	executionDurationMetric.Observe(d.Seconds())
}

func SetActiveExecutions(n int) {
	Init()
	activeExecutionsGauge.Set(float64(n))
}

func SetScheduledWorkflows(n int) {
	Init()
	scheduledWorkflowsGauge.Set(float64(n))
}
