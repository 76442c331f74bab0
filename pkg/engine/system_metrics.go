package engine

import (
	"time"

	"github.com/mundotango/compas/pkg/models"
)

// Last24HourStats summarizes execution outcomes over the trailing day.
type Last24HourStats struct {
	Executions int `json:"executions"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// SystemMetrics is a point-in-time snapshot of engine health for dashboards
// and the metrics endpoint.
type SystemMetrics struct {
	TotalWorkflows       int             `json:"total_workflows"`
	ActiveWorkflows      int             `json:"active_workflows"`
	TotalExecutions      int             `json:"total_executions"`
	ActiveExecutions     int             `json:"active_executions"`
	ScheduledWorkflows   int             `json:"scheduled_workflows"`
	Last24Hours          Last24HourStats `json:"last_24_hours"`
	AverageExecutionTime time.Duration   `json:"average_execution_time"`
}

// Metrics computes a system metrics snapshot. The average execution time
// covers executions that finished within the trailing 24 hours.
func (e *Engine) Metrics() SystemMetrics {
	now := e.now()
	dayAgo := now.Add(-24 * time.Hour)

	e.mu.RLock()
	defer e.mu.RUnlock()

	snapshot := SystemMetrics{
		TotalWorkflows:     len(e.workflows),
		TotalExecutions:    len(e.executions),
		ActiveExecutions:   len(e.active),
		ScheduledWorkflows: len(e.schedules),
	}

	for _, wf := range e.workflows {
		if wf.Runnable() {
			snapshot.ActiveWorkflows++
		}
	}

	var totalDuration time.Duration
	finished := 0

	for _, execution := range e.executions {
		if execution.StartedAt.Before(dayAgo) {
			continue
		}

		snapshot.Last24Hours.Executions++

		switch execution.Status {
		case models.ExecutionStatusCompleted:
			snapshot.Last24Hours.Completed++
		case models.ExecutionStatusFailed:
			snapshot.Last24Hours.Failed++
		}

		if execution.Status.Terminal() && execution.CompletedAt != nil {
			totalDuration += execution.ElapsedAt(now)
			finished++
		}
	}

	if finished > 0 {
		snapshot.AverageExecutionTime = totalDuration / time.Duration(finished)
	}

	return snapshot
}
