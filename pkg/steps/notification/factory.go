package notification

import (
	"log/slog"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/protocol"
)

func NewFactory(notifier protocol.Notifier) *Factory {
	return &Factory{notifier: notifier}
}

type Factory struct {
	notifier protocol.Notifier
}

func (f *Factory) Type() models.StepType {
	return models.StepTypeNotification
}

func (f *Factory) Description() string {
	return "Delivers a templated notification through the configured channel"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":  "object",
		"title": "Notification Step Configuration",
		"properties": map[string]any{
			"template": map[string]any{
				"type":        "string",
				"description": "Notification template name",
				"examples":    []string{"welcome", "week_one_tips", "new_event_notification"},
			},
			"channel": map[string]any{
				"type":        "string",
				"description": "Delivery channel",
				"examples":    []string{"email", "push", "in_app"},
			},
			"audience": map[string]any{
				"type":        "string",
				"description": "Audience selector for broadcast notifications",
				"examples":    []string{"all_users", "nearby_users"},
			},
		},
		"required": []string{"template"},
	}
}

func (f *Factory) Create(logger *slog.Logger) (protocol.StepInterpreter, error) {
	notifier := f.notifier
	if notifier == nil {
		notifier = &LogNotifier{Logger: logger}
	}

	return NewInterpreter(notifier), nil
}
