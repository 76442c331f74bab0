package engine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mundotango/compas/pkg/metrics"
	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/otelhelper"
	"github.com/mundotango/compas/pkg/protocol"
)

// runStep executes one step through its interpreter and records its audit
// entry. Each visited step gets exactly one log entry: appended as started,
// then updated in place to completed or failed with the step duration. A
// successful step's output is merged into the execution context before the
// result is returned.
func (e *Engine) runStep(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, logger *slog.Logger) (*protocol.StepResult, error) {
	stepLogger := logger.With(
		"step_id", step.ID,
		"step_type", step.Type,
	)

	startedAt := e.now()

	e.mu.Lock()
	entryIndex := len(execution.Log)
	execution.AppendLog(models.LogEntry{
		StepID:    step.ID,
		StepName:  step.Name,
		Timestamp: startedAt,
		Status:    models.LogStatusStarted,
		Input:     step.Config,
	})
	e.mu.Unlock()

	metrics.IncStepStatus(models.LogStatusStarted)
	stepLogger.Debug("Executing step")

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.step",
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.StepNameKey, step.Name),
		attribute.String(otelhelper.StepTypeKey, string(step.Type)),
	)
	defer span.End()

	result, err := e.interpretStep(ctx, execution, step, stepLogger)

	duration := e.now().Sub(startedAt)
	metrics.ObserveStepDuration(duration)

	e.mu.Lock()
	entry := &execution.Log[entryIndex]
	entry.Duration = duration

	if err != nil {
		entry.Status = models.LogStatusFailed
		entry.Error = err.Error()
	} else {
		entry.Status = models.LogStatusCompleted
		entry.Output = result.Output
		execution.MergeOutput(result.Output)
	}
	e.mu.Unlock()

	if err != nil {
		metrics.IncStepStatus(models.LogStatusFailed)
		otelhelper.SetError(span, err)
		stepLogger.Warn("Step failed", "error", err, "duration", duration)

		return nil, err
	}

	metrics.IncStepStatus(models.LogStatusCompleted)
	stepLogger.Debug("Step completed", "duration", duration)

	return result, nil
}

// interpretStep resolves and runs the interpreter for a step type. A nil
// result from an interpreter is normalized to an empty one.
func (e *Engine) interpretStep(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, logger *slog.Logger) (*protocol.StepResult, error) {
	interpreter, err := e.registry.CreateInterpreter(step.Type)
	if err != nil {
		return nil, err
	}

	result, err := interpreter.Execute(ctx, execution, step, logger)
	if err != nil {
		return nil, err
	}

	if result == nil {
		result = &protocol.StepResult{}
	}

	return result, nil
}
