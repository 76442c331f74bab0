package delay

import (
	"log/slog"
	"time"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/protocol"
)

func NewFactory(maxDelay time.Duration) *Factory {
	return &Factory{maxDelay: maxDelay}
}

type Factory struct {
	maxDelay time.Duration
}

func (f *Factory) Type() models.StepType {
	return models.StepTypeDelay
}

func (f *Factory) Description() string {
	return "Suspends the owning execution for a declared duration, capped by the engine's delay ceiling"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":  "object",
		"title": "Delay Step Configuration",
		"properties": map[string]any{
			"delay": map[string]any{
				"type":        "string",
				"description": "Duration as <n><unit> where unit is s, m, h or d",
				"pattern":     `^\d+[smhd]$`,
				"examples":    []string{"10s", "30m", "2h", "7d"},
			},
		},
		"required": []string{"delay"},
	}
}

func (f *Factory) Create(logger *slog.Logger) (protocol.StepInterpreter, error) {
	return NewInterpreter(f.maxDelay), nil
}
