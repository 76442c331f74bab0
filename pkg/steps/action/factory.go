package action

import (
	"log/slog"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/protocol"
)

func NewFactory(actions ActionSource) *Factory {
	return &Factory{actions: actions}
}

type Factory struct {
	actions ActionSource
}

func (f *Factory) Type() models.StepType {
	return models.StepTypeAction
}

func (f *Factory) Description() string {
	return "Runs a named platform action (create_profile, publish_event, run_content_moderation, ...)"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":  "object",
		"title": "Action Step Configuration",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"description": "Name of the registered action handler to run",
				"examples":    []string{"create_profile", "publish_event", "run_content_moderation"},
			},
		},
		"required": []string{"action"},
	}
}

func (f *Factory) Create(logger *slog.Logger) (protocol.StepInterpreter, error) {
	return NewInterpreter(f.actions), nil
}
