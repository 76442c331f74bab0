package protocol

import (
	"context"
	"time"
)

// ActionHandler implements one named platform action (create_profile,
// publish_event, ...). It receives the step's config block and the execution
// context, and returns the values to merge back into the context.
type ActionHandler func(ctx context.Context, config map[string]any, execContext map[string]any) (map[string]any, error)

// ConditionEvaluator evaluates a boolean expression against an environment.
// The engine's condition interpreter calls through this so real decision
// logic, or deterministic test doubles, can be substituted.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, expression string, env map[string]any) (bool, error)
}

// ApprovalRequest describes a pending human decision for an approval step.
// Timeout and Escalation carry the step's declarative metadata; providers may
// use or ignore them.
type ApprovalRequest struct {
	WorkflowID  string
	ExecutionID string
	StepID      string
	Approvers   []string
	Timeout     string
	Escalation  string
	Context     map[string]any
}

type ApprovalDecision struct {
	Approved  bool
	Approver  string
	Reason    string
	DecidedAt time.Time
}

// ApprovalProvider resolves approval steps. The built-in provider applies a
// static policy; deployments plug in real approval flows.
type ApprovalProvider interface {
	Decide(ctx context.Context, req ApprovalRequest) (ApprovalDecision, error)
}

type Notification struct {
	Template  string
	Channel   string
	Recipient string
	Audience  string
	Data      map[string]any
}

type NotificationReceipt struct {
	Sent      bool
	Template  string
	Channel   string
	Recipient string
	SentAt    time.Time
}

// Notifier delivers notification steps.
type Notifier interface {
	Send(ctx context.Context, n Notification) (NotificationReceipt, error)
}

// IntegrationClient calls out to an external service for integration steps.
type IntegrationClient interface {
	Invoke(ctx context.Context, config map[string]any, execContext map[string]any) (map[string]any, error)
}
