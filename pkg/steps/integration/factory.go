package integration

import (
	"log/slog"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/protocol"
)

func NewFactory(client protocol.IntegrationClient) *Factory {
	return &Factory{client: client}
}

type Factory struct {
	client protocol.IntegrationClient
}

func (f *Factory) Type() models.StepType {
	return models.StepTypeIntegration
}

func (f *Factory) Description() string {
	return "Calls an external service through the configured integration client"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":  "object",
		"title": "Integration Step Configuration",
	}
}

func (f *Factory) Create(logger *slog.Logger) (protocol.StepInterpreter, error) {
	return NewInterpreter(f.client), nil
}
