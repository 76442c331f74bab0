// Package models defines the core domain models for declarative workflow automation.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusActive   WorkflowStatus = "active"   // Triggerable
	WorkflowStatusInactive WorkflowStatus = "inactive" // Kept but not triggerable
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, not triggerable
)

// WorkflowCategory groups workflows by the platform area they automate.
type WorkflowCategory string

const (
	CategoryUserManagement WorkflowCategory = "user_management"
	CategoryContent        WorkflowCategory = "content"
	CategoryEvents         WorkflowCategory = "events"
	CategoryPayments       WorkflowCategory = "payments"
	CategoryCommunity      WorkflowCategory = "community"
)

// TriggerType identifies how a workflow execution starts.
type TriggerType string

const (
	TriggerManual   TriggerType = "manual"
	TriggerEvent    TriggerType = "event"
	TriggerSchedule TriggerType = "schedule"
	TriggerWebhook  TriggerType = "webhook"
)

// TriggerSpec declares the condition that starts a new execution.
// Config is interpreted per type: `event` for event triggers, `cron` for
// schedule triggers, secret material for webhook triggers.
type TriggerSpec struct {
	Type   TriggerType    `json:"type"   validate:"required,oneof=manual event schedule webhook"`
	Config map[string]any `json:"config"`
}

// EventName returns the platform event name an event trigger listens for.
func (t TriggerSpec) EventName() string {
	name, _ := t.Config["event"].(string)

	return name
}

// CronExpr returns the cron expression of a schedule trigger.
func (t TriggerSpec) CronExpr() string {
	expr, _ := t.Config["cron"].(string)

	return expr
}

// Workflow is a named, versioned declarative step graph plus its trigger.
type Workflow struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"        validate:"required,min=3"`
	Description string           `json:"description"`
	Category    WorkflowCategory `json:"category"    validate:"required,oneof=user_management content events payments community"`
	Trigger     TriggerSpec      `json:"trigger"`
	Steps       []*WorkflowStep  `json:"steps"       validate:"dive"`
	Variables   map[string]any   `json:"variables"`
	Status      WorkflowStatus   `json:"status"      validate:"required,oneof=active inactive draft"`
	Version     int              `json:"version"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CreatedBy   string           `json:"created_by"`
}

// Runnable reports whether the workflow may be triggered.
func (w *Workflow) Runnable() bool {
	return w.Status == WorkflowStatusActive
}

// FindStep returns the step with the given id, or nil.
func (w *Workflow) FindStep(stepID string) *WorkflowStep {
	for _, step := range w.Steps {
		if step.ID == stepID {
			return step
		}
	}

	return nil
}

// FirstStep returns the entry node of the step graph, or nil for an empty workflow.
func (w *Workflow) FirstStep() *WorkflowStep {
	if len(w.Steps) == 0 {
		return nil
	}

	return w.Steps[0]
}
