package condition

import (
	"log/slog"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/protocol"
)

func NewFactory(evaluator protocol.ConditionEvaluator) *Factory {
	if evaluator == nil {
		evaluator = NewExprEvaluator()
	}

	return &Factory{evaluator: evaluator}
}

type Factory struct {
	evaluator protocol.ConditionEvaluator
}

func (f *Factory) Type() models.StepType {
	return models.StepTypeCondition
}

func (f *Factory) Description() string {
	return "Evaluates a boolean expression or an AND-list of named checks against the execution context"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":  "object",
		"title": "Condition Step Configuration",
		"properties": map[string]any{
			"condition": map[string]any{
				"type":        "string",
				"description": "Boolean expression evaluated against the execution context",
				"examples":    []string{"moderation_score > 80", "duplicate_score < 0.8"},
			},
			"conditions": map[string]any{
				"type":        "array",
				"description": "Named checks combined with AND logic",
				"items":       map[string]any{"type": "string"},
				"examples": []any{
					[]string{"has_title", "has_date", "has_location"},
				},
			},
		},
	}
}

func (f *Factory) Create(logger *slog.Logger) (protocol.StepInterpreter, error) {
	return NewInterpreter(f.evaluator, nil), nil
}
