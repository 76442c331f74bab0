package models

import "time"

// StepType selects the interpreter used to run a step.
type StepType string

const (
	StepTypeCondition    StepType = "condition"
	StepTypeAction       StepType = "action"
	StepTypeDelay        StepType = "delay"
	StepTypeApproval     StepType = "approval"
	StepTypeNotification StepType = "notification"
	StepTypeIntegration  StepType = "integration"
)

// KnownStepType reports whether an interpreter exists for the given type.
func KnownStepType(t StepType) bool {
	switch t {
	case StepTypeCondition, StepTypeAction, StepTypeDelay,
		StepTypeApproval, StepTypeNotification, StepTypeIntegration:
		return true
	}

	return false
}

// WorkflowStep is one node in a workflow graph. NextSteps holds successor
// step ids: none means the step is terminal, one is an unconditional edge,
// more than one is a branch resolved by the step's own result (first listed
// wins when the step does not disambiguate). OnError, when set, names the
// step taken when this step's execution fails.
type WorkflowStep struct {
	ID        string         `json:"id"    validate:"required"`
	Name      string         `json:"name"  validate:"required"`
	Type      StepType       `json:"type"  validate:"required,oneof=condition action delay approval notification integration"`
	Config    map[string]any `json:"config"`
	NextSteps []string       `json:"next_steps"`
	OnError   string         `json:"on_error,omitempty"`
	// Timeout is declarative metadata; the execution loop does not enforce it.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Terminal reports whether the step has no outgoing success edge.
func (s *WorkflowStep) Terminal() bool {
	return len(s.NextSteps) == 0
}
