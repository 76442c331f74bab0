// Package approval implements the approval step interpreter. Decisions come
// from a pluggable ApprovalProvider; a rejection fails the step so the
// workflow's onError edge decides what happens next.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/protocol"
)

var ErrApprovalRejected = errors.New("approval rejected")

type Interpreter struct {
	provider protocol.ApprovalProvider
}

func NewInterpreter(provider protocol.ApprovalProvider) *Interpreter {
	if provider == nil {
		provider = &StaticProvider{Approve: true}
	}

	return &Interpreter{provider: provider}
}

func (i *Interpreter) Execute(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, logger *slog.Logger) (*protocol.StepResult, error) {
	request := protocol.ApprovalRequest{
		WorkflowID:  execution.WorkflowID,
		ExecutionID: execution.ID,
		StepID:      step.ID,
		Approvers:   approverList(step.Config["approvers"]),
		Context:     execution.Context,
	}

	if timeout, ok := step.Config["timeout"].(string); ok {
		request.Timeout = timeout
	}

	if escalation, ok := step.Config["escalation"].(string); ok {
		request.Escalation = escalation
	}

	logger.Info("Requesting approval", "approvers", request.Approvers)

	decision, err := i.provider.Decide(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("approval provider failed: %w", err)
	}

	if !decision.Approved {
		if decision.Reason != "" {
			return nil, fmt.Errorf("%w: %s", ErrApprovalRejected, decision.Reason)
		}

		return nil, ErrApprovalRejected
	}

	return &protocol.StepResult{
		Output: map[string]any{
			"approved":      true,
			"approver":      decision.Approver,
			"decision_time": decision.DecidedAt,
		},
	}, nil
}

func approverList(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		approvers := make([]string, 0, len(v))
		for _, item := range v {
			if name, ok := item.(string); ok {
				approvers = append(approvers, name)
			}
		}

		return approvers
	}

	return nil
}

// StaticProvider resolves every approval with a fixed policy. It stands in
// for a human-in-the-loop flow; tests script it with explicit decisions.
type StaticProvider struct {
	Approve  bool
	Approver string
	Reason   string
}

func (p *StaticProvider) Decide(_ context.Context, req protocol.ApprovalRequest) (protocol.ApprovalDecision, error) {
	approver := p.Approver
	if approver == "" && len(req.Approvers) > 0 {
		approver = req.Approvers[0]
	}

	return protocol.ApprovalDecision{
		Approved:  p.Approve,
		Approver:  approver,
		Reason:    p.Reason,
		DecidedAt: time.Now().UTC(),
	}, nil
}
