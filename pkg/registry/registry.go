// Package registry holds the step interpreter factories and named action
// handlers available to the workflow engine.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrUnknownStepType = errors.New("step type not registered")
	ErrUnknownAction   = errors.New("action not registered")
)

type Registry struct {
	logger         *slog.Logger
	interpreters   map[models.StepType]protocol.InterpreterFactory
	actionHandlers map[string]protocol.ActionHandler
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:         logger,
		interpreters:   make(map[models.StepType]protocol.InterpreterFactory),
		actionHandlers: make(map[string]protocol.ActionHandler),
	}
}

func (r *Registry) RegisterInterpreter(factory protocol.InterpreterFactory) {
	r.interpreters[factory.Type()] = factory
}

func (r *Registry) RegisterAction(name string, handler protocol.ActionHandler) {
	r.actionHandlers[name] = handler
}

// CreateInterpreter builds the interpreter for a step type. An unregistered
// type yields ErrUnknownStepType, which the engine surfaces as a step failure.
func (r *Registry) CreateInterpreter(stepType models.StepType) (protocol.StepInterpreter, error) {
	factory, ok := r.interpreters[stepType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStepType, stepType)
	}

	return factory.Create(r.logger)
}

// Action resolves a named action handler.
func (r *Registry) Action(name string) (protocol.ActionHandler, error) {
	handler, ok := r.actionHandlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}

	return handler, nil
}

// ActionNames lists the registered action handlers.
func (r *Registry) ActionNames() []string {
	names := make([]string, 0, len(r.actionHandlers))
	for name := range r.actionHandlers {
		names = append(names, name)
	}

	return names
}

// StepTypes lists the registered interpreter types.
func (r *Registry) StepTypes() []models.StepType {
	types := make([]models.StepType, 0, len(r.interpreters))
	for t := range r.interpreters {
		types = append(types, t)
	}

	return types
}

// ValidateStepConfig checks a step's config block against the JSON schema
// published by its interpreter factory.
func (r *Registry) ValidateStepConfig(step *models.WorkflowStep) error {
	factory, ok := r.interpreters[step.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStepType, step.Type)
	}

	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	config := step.Config
	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate config for step %s: %w", step.ID, err)
	}

	if !result.Valid() {
		descs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descs = append(descs, desc.String())
		}

		return fmt.Errorf("invalid config for step %s: %s", step.ID, strings.Join(descs, "; "))
	}

	return nil
}

// ValidateWorkflowSteps validates every step config in a workflow definition.
func (r *Registry) ValidateWorkflowSteps(workflow *models.Workflow) error {
	for _, step := range workflow.Steps {
		if err := r.ValidateStepConfig(step); err != nil {
			return err
		}
	}

	return nil
}
