// Package web provides HTTP handlers and REST API endpoints for workflow
// management and execution monitoring.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/mundotango/compas/pkg/engine"
	"github.com/mundotango/compas/pkg/models"
)

type APIHandlers struct {
	engine    *engine.Engine
	validator *validator.Validate
}

func NewAPIHandlers(eng *engine.Engine, validate *validator.Validate) *APIHandlers {
	return &APIHandlers{
		engine:    eng,
		validator: validate,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	category := models.WorkflowCategory(c.Query("category"))

	workflows := h.engine.Workflows(category)

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.engine.GetWorkflow(id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow := &models.Workflow{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Trigger:     req.Trigger,
		Steps:       req.Steps,
		Variables:   req.Variables,
		Status:      req.Status,
		CreatedBy:   req.CreatedBy,
	}

	if err := h.engine.CreateWorkflow(c.Context(), workflow); err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.engine.UpdateWorkflow(c.Context(), id, engine.WorkflowUpdate{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Trigger:     req.Trigger,
		Steps:       req.Steps,
		Variables:   req.Variables,
	})
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.engine.DeleteWorkflow(c.Context(), id); err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) TriggerWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req TriggerWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "api"
	}

	executionID, err := h.engine.TriggerWorkflow(c.Context(), id, req.Variables, triggeredBy)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(TriggerWorkflowResponse{ExecutionID: executionID})
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	executions := h.engine.Executions(c.Query("workflow_id"))

	return c.JSON(fiber.Map{
		"executions":  executions,
		"total_count": len(executions),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.engine.GetExecution(id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	var req CancelExecutionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	cancelledBy := req.CancelledBy
	if cancelledBy == "" {
		cancelledBy = "api"
	}

	if err := h.engine.CancelExecution(c.Context(), id, cancelledBy); err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

// Webhook starts a webhook-triggered workflow with the request body as
// trigger variables.
func (h *APIHandlers) Webhook(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var payload map[string]any
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&payload); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	executionID, err := h.engine.HandleWebhook(c.Context(), id, payload)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(TriggerWorkflowResponse{ExecutionID: executionID})
}

// DispatchEvent injects a platform event, fanning out to every active
// event-triggered workflow listening for it.
func (h *APIHandlers) DispatchEvent(c fiber.Ctx) error {
	var req DispatchEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	executionIDs := h.engine.DispatchEvent(c.Context(), req.Event, req.Payload)

	return c.Status(fiber.StatusAccepted).JSON(DispatchEventResponse{ExecutionIDs: executionIDs})
}

// SystemMetrics returns the engine health snapshot.
func (h *APIHandlers) SystemMetrics(c fiber.Ctx) error {
	return c.JSON(h.engine.Metrics())
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	snapshot := h.engine.Metrics()

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":  "healthy",
		"message": "Compás API is healthy",
		"checkers": fiber.Map{
			"workflows":         snapshot.TotalWorkflows,
			"active_executions": snapshot.ActiveExecutions,
		},
		"timestamp": time.Now().UTC(),
	})
}
