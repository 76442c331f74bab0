package approval

import (
	"log/slog"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/protocol"
)

func NewFactory(provider protocol.ApprovalProvider) *Factory {
	return &Factory{provider: provider}
}

type Factory struct {
	provider protocol.ApprovalProvider
}

func (f *Factory) Type() models.StepType {
	return models.StepTypeApproval
}

func (f *Factory) Description() string {
	return "Requests a decision from the approval provider; a rejection fails the step"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":  "object",
		"title": "Approval Step Configuration",
		"properties": map[string]any{
			"approvers": map[string]any{
				"type":        "array",
				"description": "Roles or users asked to decide",
				"items":       map[string]any{"type": "string"},
				"examples":    []any{[]string{"event_moderator"}},
			},
			"timeout": map[string]any{
				"type":        "string",
				"description": "Declarative decision deadline, forwarded to the provider",
				"examples":    []string{"2h", "24h"},
			},
			"escalation": map[string]any{
				"type":        "string",
				"description": "Role escalated to when the deadline lapses, forwarded to the provider",
				"examples":    []string{"admin", "senior_moderator"},
			},
		},
		"required": []string{"approvers"},
	}
}

func (f *Factory) Create(logger *slog.Logger) (protocol.StepInterpreter, error) {
	return NewInterpreter(f.provider), nil
}
