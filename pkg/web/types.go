// Package web provides HTTP request and response types for the workflow API.
package web

import "github.com/mundotango/compas/pkg/models"

// CreateWorkflowRequest represents the request body for creating a workflow.
type CreateWorkflowRequest struct {
	ID          string                  `json:"id,omitempty"`
	Name        string                  `json:"name"        validate:"required,min=3"`
	Description string                  `json:"description"`
	Category    models.WorkflowCategory `json:"category"    validate:"required"`
	Trigger     models.TriggerSpec      `json:"trigger"`
	Steps       []*models.WorkflowStep  `json:"steps"`
	Variables   map[string]any          `json:"variables"`
	Status      models.WorkflowStatus   `json:"status,omitempty"`
	CreatedBy   string                  `json:"created_by"`
}

// UpdateWorkflowRequest represents the request body for updating a workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name        *string                `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string                `json:"description,omitempty"`
	Status      *models.WorkflowStatus `json:"status,omitempty"      validate:"omitempty,oneof=active inactive draft"`
	Trigger     *models.TriggerSpec    `json:"trigger,omitempty"`
	Steps       []*models.WorkflowStep `json:"steps,omitempty"`
	Variables   map[string]any         `json:"variables,omitempty"`
}

// TriggerWorkflowRequest carries the manual trigger payload.
type TriggerWorkflowRequest struct {
	Variables   map[string]any `json:"variables"`
	TriggeredBy string         `json:"triggered_by"`
}

// TriggerWorkflowResponse returns the started execution id.
type TriggerWorkflowResponse struct {
	ExecutionID string `json:"execution_id"`
}

// CancelExecutionRequest names who requested the cancellation.
type CancelExecutionRequest struct {
	CancelledBy string `json:"cancelled_by"`
}

// DispatchEventRequest injects a platform event over HTTP.
type DispatchEventRequest struct {
	Event   string         `json:"event"   validate:"required"`
	Payload map[string]any `json:"payload"`
}

// DispatchEventResponse lists the executions the event started.
type DispatchEventResponse struct {
	ExecutionIDs []string `json:"execution_ids"`
}
