package engine

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mundotango/compas/pkg/metrics"
	"github.com/mundotango/compas/pkg/models"
)

// sweepInterval is how often the retention sweeper scans for expired
// executions.
const sweepInterval = time.Hour

// installScheduleLocked registers a cron entry for an active schedule-
// triggered workflow. Callers hold e.mu.
func (e *Engine) installScheduleLocked(workflow *models.Workflow) {
	if workflow.Trigger.Type != models.TriggerSchedule || !workflow.Runnable() {
		return
	}

	workflowID := workflow.ID

	entryID, err := e.cron.AddFunc(workflow.Trigger.CronExpr(), func() {
		if _, err := e.TriggerWorkflow(e.baseCtx, workflowID, nil, "scheduler"); err != nil {
			e.logger.Error("Scheduled trigger failed",
				"workflow_id", workflowID, "error", err)
		}
	})
	if err != nil {
		// Validation parses the expression before a workflow is accepted, so
		// this only fires for workflows loaded from an older store.
		e.logger.Error("Failed to schedule workflow",
			"workflow_id", workflowID, "cron", workflow.Trigger.CronExpr(), "error", err)

		return
	}

	e.schedules[workflowID] = entryID
	metrics.SetScheduledWorkflows(len(e.schedules))

	e.logger.Info("Workflow scheduled",
		"workflow_id", workflowID, "cron", workflow.Trigger.CronExpr())
}

// removeScheduleLocked drops a workflow's cron entry if one exists. Callers
// hold e.mu.
func (e *Engine) removeScheduleLocked(workflowID string) {
	entryID, ok := e.schedules[workflowID]
	if !ok {
		return
	}

	e.cron.Remove(entryID)
	delete(e.schedules, workflowID)
	metrics.SetScheduledWorkflows(len(e.schedules))
}

// sweepLoop periodically drops terminal executions older than the retention
// window. Runs until the engine stops.
func (e *Engine) sweepLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.baseCtx.Done():
			return
		case <-ticker.C:
			e.sweepExecutions()
		}
	}
}

// sweepExecutions removes executions that finished before the retention
// cutoff.
func (e *Engine) sweepExecutions() {
	cutoff := e.now().Add(-e.retention)
	removed := 0

	e.mu.Lock()
	for id, execution := range e.executions {
		if execution.Status.Terminal() && execution.CompletedAt != nil &&
			execution.CompletedAt.Before(cutoff) {
			delete(e.executions, id)
			removed++
		}
	}
	e.mu.Unlock()

	if removed > 0 {
		e.logger.Info("Swept expired executions", "removed", removed)
	}
}

// cronLogger adapts slog to the scheduler's logging interface.
type cronLogger struct {
	logger *slog.Logger
}

func newCronLogger(logger *slog.Logger) cron.Logger {
	return cronLogger{logger: logger.With("module", "scheduler")}
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
