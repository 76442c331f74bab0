package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mundotango/compas/pkg/events"
	"github.com/mundotango/compas/pkg/metrics"
	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/otelhelper"
)

// TriggerWorkflow starts a new asynchronous execution of an active workflow
// and returns its execution id. Unknown and non-active workflows yield
// ErrWorkflowNotRunnable without creating any execution. Variables are merged
// over the workflow's declared Variables into the initial execution context.
func (e *Engine) TriggerWorkflow(ctx context.Context, workflowID string, variables map[string]any, triggeredBy string) (string, error) {
	e.mu.Lock()

	workflow, ok := e.workflows[workflowID]
	if !ok || !workflow.Runnable() {
		e.mu.Unlock()

		return "", fmt.Errorf("%w: %s", ErrWorkflowNotRunnable, workflowID)
	}

	execution := &models.WorkflowExecution{
		ID:          generateExecutionID(),
		WorkflowID:  workflowID,
		Status:      models.ExecutionStatusRunning,
		Context:     initialContext(workflow.Variables, variables),
		StartedAt:   e.now(),
		TriggeredBy: triggeredBy,
	}

	if first := workflow.FirstStep(); first != nil {
		execution.CurrentStep = first.ID
	}

	runCtx, cancel := context.WithCancel(e.baseCtx)
	r := &run{cancel: cancel, done: make(chan struct{})}

	e.executions[execution.ID] = execution
	e.active[execution.ID] = r
	metrics.SetActiveExecutions(len(e.active))
	e.mu.Unlock()

	e.publish(ctx, workflowID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, workflowID),
		ExecutionID: execution.ID,
		TriggeredBy: triggeredBy,
		Variables:   variables,
	})

	e.logger.Info("Execution started",
		"workflow_id", workflowID, "execution_id", execution.ID, "triggered_by", triggeredBy)

	go e.runExecution(runCtx, workflow, execution, r)

	return execution.ID, nil
}

// Wait blocks until the execution reaches a terminal state or ctx is done.
func (e *Engine) Wait(ctx context.Context, executionID string) error {
	e.mu.RLock()
	_, exists := e.executions[executionID]
	r, running := e.active[executionID]
	e.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}

	if !running {
		return nil
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CancelExecution requests cooperative cancellation of a running execution.
// The current step's context is cancelled; the execution finishes as
// cancelled once the step returns.
func (e *Engine) CancelExecution(ctx context.Context, executionID, cancelledBy string) error {
	e.mu.Lock()

	execution, exists := e.executions[executionID]
	if !exists {
		e.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}

	r, running := e.active[executionID]
	if !running || execution.Status != models.ExecutionStatusRunning {
		e.mu.Unlock()

		return fmt.Errorf("%w: %s is %s", ErrExecutionNotActive, executionID, execution.Status)
	}

	r.cancelledBy = cancelledBy
	e.mu.Unlock()

	r.cancel()

	e.logger.Info("Execution cancellation requested",
		"execution_id", executionID, "cancelled_by", cancelledBy)

	return nil
}

// GetExecution returns a snapshot of an execution's state.
func (e *Engine) GetExecution(executionID string) (*models.WorkflowExecution, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	execution, ok := e.executions[executionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}

	return snapshotExecution(execution), nil
}

// Executions lists execution snapshots, newest first, optionally filtered by
// workflow id.
func (e *Engine) Executions(workflowID string) []*models.WorkflowExecution {
	e.mu.RLock()
	defer e.mu.RUnlock()

	executions := make([]*models.WorkflowExecution, 0, len(e.executions))
	for _, execution := range e.executions {
		if workflowID != "" && execution.WorkflowID != workflowID {
			continue
		}

		executions = append(executions, snapshotExecution(execution))
	}

	sort.Slice(executions, func(i, j int) bool {
		if !executions[i].StartedAt.Equal(executions[j].StartedAt) {
			return executions[i].StartedAt.After(executions[j].StartedAt)
		}

		return executions[i].ID < executions[j].ID
	})

	return executions
}

// DispatchEvent delivers a platform event to every active event-triggered
// workflow listening for it and returns the started execution ids.
func (e *Engine) DispatchEvent(ctx context.Context, name string, payload map[string]any) []string {
	e.mu.RLock()
	matched := make([]string, 0, 2)
	for _, wf := range e.workflows {
		if wf.Runnable() && wf.Trigger.Type == models.TriggerEvent && wf.Trigger.EventName() == name {
			matched = append(matched, wf.ID)
		}
	}
	e.mu.RUnlock()

	sort.Strings(matched)

	executionIDs := make([]string, 0, len(matched))

	for _, workflowID := range matched {
		executionID, err := e.TriggerWorkflow(ctx, workflowID, payload, "event:"+name)
		if err != nil {
			e.logger.Error("Failed to trigger workflow from event",
				"workflow_id", workflowID, "event", name, "error", err)

			continue
		}

		executionIDs = append(executionIDs, executionID)
	}

	if len(executionIDs) > 0 {
		e.logger.Info("Platform event dispatched",
			"event", name, "executions", len(executionIDs))
	}

	return executionIDs
}

// HandleWebhook starts an execution of a webhook-triggered workflow with the
// request payload as trigger variables.
func (e *Engine) HandleWebhook(ctx context.Context, workflowID string, payload map[string]any) (string, error) {
	e.mu.RLock()
	workflow, ok := e.workflows[workflowID]
	webhook := ok && workflow.Trigger.Type == models.TriggerWebhook
	e.mu.RUnlock()

	if !webhook {
		return "", fmt.Errorf("%w: %s has no webhook trigger", ErrWorkflowNotRunnable, workflowID)
	}

	return e.TriggerWorkflow(ctx, workflowID, payload, "webhook")
}

// runExecution drives one execution from its first step to a terminal state.
// Steps within an execution are strictly sequential; exactly one step is
// current at any time.
func (e *Engine) runExecution(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution, r *run) {
	defer close(r.done)

	logger := e.logger.With(
		"workflow_id", workflow.ID,
		"execution_id", execution.ID,
	)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Execution panicked", "panic", rec)
			e.finishExecution(ctx, workflow, execution, models.ExecutionStatusFailed,
				fmt.Sprintf("panic: %v", rec), execution.CurrentStep)
		}
	}()

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.TriggerTypeKey, string(workflow.Trigger.Type)),
	)
	defer span.End()

	for {
		if ctx.Err() != nil {
			e.finishCancelled(ctx, workflow, execution, r)

			return
		}

		e.mu.RLock()
		currentStepID := execution.CurrentStep
		e.mu.RUnlock()

		if currentStepID == "" {
			e.finishExecution(ctx, workflow, execution, models.ExecutionStatusCompleted, "", "")

			return
		}

		step := workflow.FindStep(currentStepID)
		if step == nil {
			e.finishExecution(ctx, workflow, execution, models.ExecutionStatusFailed,
				fmt.Sprintf("step %s not found in workflow", currentStepID), currentStepID)

			return
		}

		result, err := e.runStep(ctx, execution, step, logger)

		if err != nil && ctx.Err() != nil {
			e.finishCancelled(ctx, workflow, execution, r)

			return
		}

		if err != nil {
			if step.OnError != "" {
				logger.Warn("Step failed, routing to recovery step",
					"step_id", step.ID, "on_error", step.OnError, "error", err)

				e.mu.Lock()
				execution.CurrentStep = step.OnError
				e.mu.Unlock()

				continue
			}

			e.finishExecution(ctx, workflow, execution, models.ExecutionStatusFailed,
				err.Error(), step.ID)

			return
		}

		if step.Terminal() {
			e.finishExecution(ctx, workflow, execution, models.ExecutionStatusCompleted, "", "")

			return
		}

		e.mu.Lock()
		execution.CurrentStep = chooseNextStep(step, result.NextStep)
		e.mu.Unlock()
	}
}

// chooseNextStep resolves a branch. A result naming one of the declared
// successors wins; otherwise the first listed successor is taken.
func chooseNextStep(step *models.WorkflowStep, preferred string) string {
	if preferred != "" {
		for _, next := range step.NextSteps {
			if next == preferred {
				return next
			}
		}
	}

	return step.NextSteps[0]
}

// finishCancelled finalizes an execution whose context was cancelled between
// or during steps.
func (e *Engine) finishCancelled(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution, r *run) {
	e.mu.RLock()
	cancelledBy := r.cancelledBy
	e.mu.RUnlock()

	e.finishExecutionWith(ctx, workflow, execution, models.ExecutionStatusCancelled, "", "", cancelledBy)
}

func (e *Engine) finishExecution(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution, status models.ExecutionStatus, errMsg, failedStep string) {
	e.finishExecutionWith(ctx, workflow, execution, status, errMsg, failedStep, "")
}

// finishExecutionWith moves an execution to a terminal state, updates
// metrics and publishes the matching lifecycle event.
func (e *Engine) finishExecutionWith(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution, status models.ExecutionStatus, errMsg, failedStep, cancelledBy string) {
	completedAt := e.now()

	e.mu.Lock()
	if execution.Status.Terminal() {
		e.mu.Unlock()

		return
	}

	execution.Status = status
	execution.CurrentStep = ""
	execution.CompletedAt = &completedAt
	execution.Error = errMsg
	stepsExecuted := len(execution.Log)
	delete(e.active, execution.ID)
	metrics.SetActiveExecutions(len(e.active))
	e.mu.Unlock()

	duration := execution.ElapsedAt(completedAt)
	metrics.IncExecutionStatus(status)
	metrics.ObserveExecutionDuration(duration)

	switch status {
	case models.ExecutionStatusCompleted:
		e.publish(ctx, workflow.ID, events.ExecutionCompleted{
			BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, workflow.ID),
			ExecutionID:   execution.ID,
			Duration:      duration,
			StepsExecuted: stepsExecuted,
		})
		e.logger.Info("Execution completed",
			"workflow_id", workflow.ID, "execution_id", execution.ID,
			"steps", stepsExecuted, "duration", duration)
	case models.ExecutionStatusFailed:
		e.publish(ctx, workflow.ID, events.ExecutionFailed{
			BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, workflow.ID),
			ExecutionID: execution.ID,
			Error:       errMsg,
			FailedStep:  failedStep,
			Duration:    duration,
		})
		e.logger.Error("Execution failed",
			"workflow_id", workflow.ID, "execution_id", execution.ID,
			"failed_step", failedStep, "error", errMsg)
	case models.ExecutionStatusCancelled:
		e.publish(ctx, workflow.ID, events.ExecutionCancelled{
			BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, workflow.ID),
			ExecutionID: execution.ID,
			CancelledBy: cancelledBy,
		})
		e.logger.Info("Execution cancelled",
			"workflow_id", workflow.ID, "execution_id", execution.ID,
			"cancelled_by", cancelledBy)
	}
}

// initialContext seeds the execution context from workflow variables and
// trigger variables, trigger values winning.
func initialContext(workflowVars, triggerVars map[string]any) map[string]any {
	execContext := make(map[string]any, len(workflowVars)+len(triggerVars))

	for k, v := range workflowVars {
		execContext[k] = v
	}

	for k, v := range triggerVars {
		execContext[k] = v
	}

	return execContext
}

// snapshotExecution copies an execution so callers can read it without
// racing the run loop.
func snapshotExecution(execution *models.WorkflowExecution) *models.WorkflowExecution {
	snapshot := *execution

	snapshot.Context = make(map[string]any, len(execution.Context))
	for k, v := range execution.Context {
		snapshot.Context[k] = v
	}

	snapshot.Log = make([]models.LogEntry, len(execution.Log))
	copy(snapshot.Log, execution.Log)

	if execution.CompletedAt != nil {
		completedAt := *execution.CompletedAt
		snapshot.CompletedAt = &completedAt
	}

	return &snapshot
}

// generateExecutionID produces a short unique execution id.
func generateExecutionID() string {
	return "exec-" + strings.Split(uuid.New().String(), "-")[0]
}
