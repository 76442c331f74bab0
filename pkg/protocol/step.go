// Package protocol defines the interfaces and contracts for pluggable step interpreters.
package protocol

import (
	"context"
	"log/slog"

	"github.com/mundotango/compas/pkg/models"
)

// StepResult is what an interpreter produces for one completed step. Output
// is merged into the execution context by the engine. NextStep, when set,
// picks the successor among the step's declared NextSteps; the engine falls
// back to the first listed successor otherwise.
type StepResult struct {
	Output   map[string]any
	NextStep string
}

// StepInterpreter runs one step type. Implementations must be safe for
// concurrent use: the engine shares one interpreter across executions.
type StepInterpreter interface {
	Execute(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, logger *slog.Logger) (*StepResult, error)
}

// InterpreterFactory creates interpreter instances and describes the step
// type's configuration schema.
type InterpreterFactory interface {
	// Type returns the step type this factory serves.
	Type() models.StepType

	// Description returns a description of what the step type does.
	Description() string

	// Schema returns the JSON schema for the step's config block.
	Schema() map[string]any

	// Create creates the interpreter instance.
	Create(logger *slog.Logger) (StepInterpreter, error)
}
