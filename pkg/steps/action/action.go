// Package action implements the action step interpreter, dispatching to
// named platform action handlers registered with the engine.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/protocol"
)

var ErrMissingActionName = errors.New("action step config requires an 'action' name")

// ActionSource resolves named action handlers. The engine's registry
// satisfies this.
type ActionSource interface {
	Action(name string) (protocol.ActionHandler, error)
}

type Interpreter struct {
	actions ActionSource
}

func NewInterpreter(actions ActionSource) *Interpreter {
	return &Interpreter{actions: actions}
}

func (i *Interpreter) Execute(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, logger *slog.Logger) (*protocol.StepResult, error) {
	name, _ := step.Config["action"].(string)
	if name == "" {
		return nil, ErrMissingActionName
	}

	handler, err := i.actions.Action(name)
	if err != nil {
		return nil, err
	}

	logger.Info("Executing action", "action", name)

	output, err := handler(ctx, step.Config, execution.Context)
	if err != nil {
		return nil, fmt.Errorf("action %q failed: %w", name, err)
	}

	return &protocol.StepResult{Output: output}, nil
}
