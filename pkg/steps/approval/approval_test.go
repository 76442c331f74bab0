package approval

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundotango/compas/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func approvalStep() *models.WorkflowStep {
	return &models.WorkflowStep{
		ID:   "review",
		Name: "Review",
		Type: models.StepTypeApproval,
		Config: map[string]any{
			"approvers":  []any{"content_moderator"},
			"timeout":    "2h",
			"escalation": "senior_moderator",
		},
	}
}

func TestInterpreter_Approved(t *testing.T) {
	interpreter := NewInterpreter(&StaticProvider{Approve: true})

	execution := &models.WorkflowExecution{ID: "exec-1", WorkflowID: "wf-1"}

	result, err := interpreter.Execute(context.Background(), execution, approvalStep(), testLogger())
	require.NoError(t, err)

	assert.Equal(t, true, result.Output["approved"])
	assert.Equal(t, "content_moderator", result.Output["approver"], "defaults to the first configured approver")
	assert.NotNil(t, result.Output["decision_time"])
}

func TestInterpreter_RejectedFailsStep(t *testing.T) {
	interpreter := NewInterpreter(&StaticProvider{Approve: false, Reason: "policy violation"})

	_, err := interpreter.Execute(context.Background(), &models.WorkflowExecution{}, approvalStep(), testLogger())
	require.ErrorIs(t, err, ErrApprovalRejected)
	assert.Contains(t, err.Error(), "policy violation")
}

func TestInterpreter_NilProviderApproves(t *testing.T) {
	interpreter := NewInterpreter(nil)

	result, err := interpreter.Execute(context.Background(), &models.WorkflowExecution{}, approvalStep(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, true, result.Output["approved"])
}

func TestApproverList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, approverList([]any{"a", "b"}))
	assert.Equal(t, []string{"a"}, approverList([]string{"a"}))
	assert.Nil(t, approverList("not a list"))
	assert.Nil(t, approverList(nil))
}
