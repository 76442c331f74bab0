// Package notification implements the notification step interpreter.
package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/protocol"
)

type Interpreter struct {
	notifier protocol.Notifier
}

func NewInterpreter(notifier protocol.Notifier) *Interpreter {
	if notifier == nil {
		notifier = &LogNotifier{}
	}

	return &Interpreter{notifier: notifier}
}

func (i *Interpreter) Execute(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, logger *slog.Logger) (*protocol.StepResult, error) {
	template, _ := step.Config["template"].(string)
	channel, _ := step.Config["channel"].(string)
	audience, _ := step.Config["audience"].(string)

	notification := protocol.Notification{
		Template:  template,
		Channel:   channel,
		Audience:  audience,
		Recipient: recipientFromContext(execution.Context),
		Data:      execution.Context,
	}

	receipt, err := i.notifier.Send(ctx, notification)
	if err != nil {
		return nil, err
	}

	return &protocol.StepResult{
		Output: map[string]any{
			"notification_sent": receipt.Sent,
			"template":          receipt.Template,
			"channel":           receipt.Channel,
			"recipient":         receipt.Recipient,
		},
	}, nil
}

// recipientFromContext picks the notification target the way the platform
// seeds its workflow variables: user first, then content author.
func recipientFromContext(execContext map[string]any) string {
	if userID, ok := execContext["user_id"].(string); ok && userID != "" {
		return userID
	}

	if authorID, ok := execContext["author_id"].(string); ok && authorID != "" {
		return authorID
	}

	return ""
}

// LogNotifier is the default delivery channel: it records the send in the
// process log and acknowledges. Deployments wire a real notification service.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Send(_ context.Context, notification protocol.Notification) (protocol.NotificationReceipt, error) {
	if n.Logger != nil {
		n.Logger.Info("Sending notification",
			"template", notification.Template,
			"channel", notification.Channel,
			"recipient", notification.Recipient,
		)
	}

	return protocol.NotificationReceipt{
		Sent:      true,
		Template:  notification.Template,
		Channel:   notification.Channel,
		Recipient: notification.Recipient,
		SentAt:    time.Now().UTC(),
	}, nil
}
