package notification

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/protocol"
)

type recordingNotifier struct {
	sent []protocol.Notification
}

func (n *recordingNotifier) Send(_ context.Context, notification protocol.Notification) (protocol.NotificationReceipt, error) {
	n.sent = append(n.sent, notification)

	return protocol.NotificationReceipt{
		Sent:      true,
		Template:  notification.Template,
		Channel:   notification.Channel,
		Recipient: notification.Recipient,
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestInterpreter_SendsFromConfigAndContext(t *testing.T) {
	notifier := &recordingNotifier{}
	interpreter := NewInterpreter(notifier)

	execution := &models.WorkflowExecution{
		ID:      "exec-1",
		Context: map[string]any{"user_id": "u-42", "location": "Buenos Aires"},
	}
	step := &models.WorkflowStep{
		ID:   "welcome",
		Name: "Send Welcome Email",
		Type: models.StepTypeNotification,
		Config: map[string]any{
			"template": "welcome",
			"channel":  "email",
		},
	}

	result, err := interpreter.Execute(context.Background(), execution, step, testLogger())
	require.NoError(t, err)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "welcome", notifier.sent[0].Template)
	assert.Equal(t, "email", notifier.sent[0].Channel)
	assert.Equal(t, "u-42", notifier.sent[0].Recipient)

	assert.Equal(t, true, result.Output["notification_sent"])
	assert.Equal(t, "u-42", result.Output["recipient"])
}

func TestRecipientFromContext(t *testing.T) {
	assert.Equal(t, "u-1", recipientFromContext(map[string]any{"user_id": "u-1", "author_id": "a-1"}))
	assert.Equal(t, "a-1", recipientFromContext(map[string]any{"author_id": "a-1"}))
	assert.Empty(t, recipientFromContext(map[string]any{"user_id": ""}))
	assert.Empty(t, recipientFromContext(nil))
}

func TestLogNotifier_AcknowledgesSend(t *testing.T) {
	notifier := &LogNotifier{Logger: testLogger()}

	receipt, err := notifier.Send(context.Background(), protocol.Notification{
		Template:  "weekly_community_digest",
		Channel:   "email",
		Recipient: "u-9",
	})
	require.NoError(t, err)
	assert.True(t, receipt.Sent)
	assert.False(t, receipt.SentAt.IsZero())
}
