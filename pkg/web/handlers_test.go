package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundotango/compas/pkg/engine"
	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/registry"
	"github.com/mundotango/compas/pkg/steps/action"
	"github.com/mundotango/compas/pkg/steps/approval"
	"github.com/mundotango/compas/pkg/steps/condition"
	"github.com/mundotango/compas/pkg/steps/delay"
	"github.com/mundotango/compas/pkg/steps/integration"
	"github.com/mundotango/compas/pkg/steps/notification"
	"github.com/mundotango/compas/pkg/web"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testRegistry() *registry.Registry {
	reg := registry.NewRegistry(testLogger())

	reg.RegisterInterpreter(condition.NewFactory(nil))
	reg.RegisterInterpreter(action.NewFactory(reg))
	reg.RegisterInterpreter(delay.NewFactory(20 * time.Millisecond))
	reg.RegisterInterpreter(approval.NewFactory(nil))
	reg.RegisterInterpreter(notification.NewFactory(nil))
	reg.RegisterInterpreter(integration.NewFactory(nil))

	for name, handler := range action.Builtin(nil) {
		reg.RegisterAction(name, handler)
	}

	return reg
}

func setupTestApp(t *testing.T) (*fiber.App, *engine.Engine) {
	t.Helper()

	eng, err := engine.New(engine.Config{
		Registry: testRegistry(),
		Logger:   testLogger(),
	})
	require.NoError(t, err)

	handlers := web.NewAPIHandlers(eng, validator.New(validator.WithRequiredStructEnabled()))
	app := fiber.New()

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/trigger", handlers.TriggerWorkflow)

	e := app.Group("/executions")
	e.Get("/", handlers.GetExecutions)
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)

	app.Post("/hooks/:id", handlers.Webhook)
	app.Post("/events", handlers.DispatchEvent)
	app.Get("/metrics/system", handlers.SystemMetrics)
	app.Get("/health", handlers.HealthCheck)

	return app, eng
}

func seedWorkflow(t *testing.T, eng *engine.Engine, id string, trigger models.TriggerSpec) {
	t.Helper()

	err := eng.CreateWorkflow(context.Background(), &models.Workflow{
		ID:       id,
		Name:     "Seeded " + id,
		Category: models.CategoryContent,
		Trigger:  trigger,
		Steps: []*models.WorkflowStep{
			{
				ID:     "moderate",
				Name:   "Moderate",
				Type:   models.StepTypeAction,
				Config: map[string]any{"action": "run_content_moderation"},
			},
		},
		Status: models.WorkflowStatusActive,
	})
	require.NoError(t, err)
}

func doJSON(t *testing.T, app *fiber.App, method, target string, payload any) *http.Response {
	t.Helper()

	var body io.Reader

	if payload != nil {
		if raw, ok := payload.(string); ok {
			body = bytes.NewBufferString(raw)
		} else {
			encoded, err := json.Marshal(payload)
			require.NoError(t, err)
			body = bytes.NewBuffer(encoded)
		}
	}

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		validateResult func(t *testing.T, body []byte)
	}{
		{
			name: "successful creation",
			requestBody: web.CreateWorkflowRequest{
				Name:        "Content Review",
				Description: "Reviews incoming content",
				Category:    models.CategoryContent,
				Trigger:     models.TriggerSpec{Type: models.TriggerManual},
				Steps: []*models.WorkflowStep{
					{
						ID:     "moderate",
						Name:   "Moderate",
						Type:   models.StepTypeAction,
						Config: map[string]any{"action": "run_content_moderation"},
					},
				},
				CreatedBy: "test-user",
			},
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var workflow models.Workflow

				require.NoError(t, json.Unmarshal(body, &workflow))
				assert.Equal(t, "Content Review", workflow.Name)
				assert.Equal(t, models.CategoryContent, workflow.Category)
				assert.Equal(t, models.WorkflowStatusDraft, workflow.Status)
				assert.Equal(t, 1, workflow.Version)
				assert.NotEmpty(t, workflow.ID)
			},
		},
		{
			name: "validation error - missing name",
			requestBody: web.CreateWorkflowRequest{
				Category: models.CategoryContent,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation error - name too short",
			requestBody: web.CreateWorkflowRequest{
				Name:     "No",
				Category: models.CategoryContent,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation error - missing category",
			requestBody: web.CreateWorkflowRequest{
				Name: "Content Review",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not-json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "invalid step graph",
			requestBody: web.CreateWorkflowRequest{
				Name:     "Broken Graph",
				Category: models.CategoryContent,
				Trigger:  models.TriggerSpec{Type: models.TriggerManual},
				Steps: []*models.WorkflowStep{
					{
						ID:        "moderate",
						Name:      "Moderate",
						Type:      models.StepTypeAction,
						Config:    map[string]any{"action": "run_content_moderation"},
						NextSteps: []string{"missing"},
					},
				},
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			resp := doJSON(t, app, http.MethodPost, "/workflows", tt.requestBody)

			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.validateResult != nil {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				tt.validateResult(t, body)
			}
		})
	}
}

func TestAPIHandlers_CreateWorkflow_DuplicateID(t *testing.T) {
	t.Parallel()

	app, eng := setupTestApp(t)
	seedWorkflow(t, eng, "wf-dup", models.TriggerSpec{Type: models.TriggerManual})

	resp := doJSON(t, app, http.MethodPost, "/workflows", web.CreateWorkflowRequest{
		ID:       "wf-dup",
		Name:     "Duplicate",
		Category: models.CategoryContent,
		Trigger:  models.TriggerSpec{Type: models.TriggerManual},
	})

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPIHandlers_GetWorkflows(t *testing.T) {
	t.Parallel()

	app, eng := setupTestApp(t)
	seedWorkflow(t, eng, "wf-a", models.TriggerSpec{Type: models.TriggerManual})
	seedWorkflow(t, eng, "wf-b", models.TriggerSpec{Type: models.TriggerManual})

	resp := doJSON(t, app, http.MethodGet, "/workflows/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Workflows  []*models.Workflow `json:"workflows"`
		TotalCount int                `json:"total_count"`
	}

	decodeBody(t, resp, &listing)
	assert.Equal(t, 2, listing.TotalCount)
	require.Len(t, listing.Workflows, 2)

	// Category filter with no matches returns an empty listing.
	resp = doJSON(t, app, http.MethodGet, "/workflows/?category=payments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	decodeBody(t, resp, &listing)
	assert.Equal(t, 0, listing.TotalCount)
}

func TestAPIHandlers_GetWorkflow(t *testing.T) {
	t.Parallel()

	app, eng := setupTestApp(t)
	seedWorkflow(t, eng, "wf-get", models.TriggerSpec{Type: models.TriggerManual})

	resp := doJSON(t, app, http.MethodGet, "/workflows/wf-get", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var workflow models.Workflow

	decodeBody(t, resp, &workflow)
	assert.Equal(t, "wf-get", workflow.ID)
	assert.Equal(t, "Seeded wf-get", workflow.Name)

	resp = doJSON(t, app, http.MethodGet, "/workflows/missing", nil)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_UpdateWorkflow(t *testing.T) {
	t.Parallel()

	app, eng := setupTestApp(t)
	seedWorkflow(t, eng, "wf-update", models.TriggerSpec{Type: models.TriggerManual})

	resp := doJSON(t, app, http.MethodPatch, "/workflows/wf-update", web.UpdateWorkflowRequest{
		Name: stringPtr("Renamed Workflow"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var workflow models.Workflow

	decodeBody(t, resp, &workflow)
	assert.Equal(t, "Renamed Workflow", workflow.Name)
	assert.Equal(t, 1, workflow.Version)

	resp = doJSON(t, app, http.MethodPatch, "/workflows/wf-update", web.UpdateWorkflowRequest{
		Name: stringPtr("No"),
	})

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPatch, "/workflows/missing", web.UpdateWorkflowRequest{
		Name: stringPtr("Renamed Workflow"),
	})

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_DeleteWorkflow(t *testing.T) {
	t.Parallel()

	app, eng := setupTestApp(t)
	seedWorkflow(t, eng, "wf-del", models.TriggerSpec{Type: models.TriggerManual})

	resp := doJSON(t, app, http.MethodDelete, "/workflows/wf-del", nil)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/workflows/wf-del", nil)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/workflows/wf-del", nil)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_TriggerWorkflow(t *testing.T) {
	t.Parallel()

	app, eng := setupTestApp(t)
	seedWorkflow(t, eng, "wf-run", models.TriggerSpec{Type: models.TriggerManual})

	resp := doJSON(t, app, http.MethodPost, "/workflows/wf-run/trigger", web.TriggerWorkflowRequest{
		Variables:   map[string]any{"content_id": "c-9"},
		TriggeredBy: "handler-test",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var triggered web.TriggerWorkflowResponse

	decodeBody(t, resp, &triggered)
	require.NotEmpty(t, triggered.ExecutionID)

	require.NoError(t, eng.Wait(context.Background(), triggered.ExecutionID))

	resp = doJSON(t, app, http.MethodGet, "/executions/"+triggered.ExecutionID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var execution models.WorkflowExecution

	decodeBody(t, resp, &execution)
	assert.Equal(t, "wf-run", execution.WorkflowID)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, "handler-test", execution.TriggeredBy)
	assert.Equal(t, "c-9", execution.Context["content_id"])
}

func TestAPIHandlers_TriggerWorkflow_NotRunnable(t *testing.T) {
	t.Parallel()

	app, eng := setupTestApp(t)
	seedWorkflow(t, eng, "wf-off", models.TriggerSpec{Type: models.TriggerManual})

	inactive := models.WorkflowStatusInactive
	_, err := eng.UpdateWorkflow(context.Background(), "wf-off", engine.WorkflowUpdate{Status: &inactive})
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodPost, "/workflows/wf-off/trigger", nil)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/workflows/missing/trigger", nil)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPIHandlers_GetExecutions(t *testing.T) {
	t.Parallel()

	app, eng := setupTestApp(t)
	seedWorkflow(t, eng, "wf-one", models.TriggerSpec{Type: models.TriggerManual})
	seedWorkflow(t, eng, "wf-two", models.TriggerSpec{Type: models.TriggerManual})

	ctx := context.Background()

	for _, id := range []string{"wf-one", "wf-one", "wf-two"} {
		execID, err := eng.TriggerWorkflow(ctx, id, nil, "handler-test")
		require.NoError(t, err)
		require.NoError(t, eng.Wait(ctx, execID))
	}

	resp := doJSON(t, app, http.MethodGet, "/executions/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Executions []*models.WorkflowExecution `json:"executions"`
		TotalCount int                 `json:"total_count"`
	}

	decodeBody(t, resp, &listing)
	assert.Equal(t, 3, listing.TotalCount)

	resp = doJSON(t, app, http.MethodGet, "/executions/?workflow_id=wf-one", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	decodeBody(t, resp, &listing)
	assert.Equal(t, 2, listing.TotalCount)

	for _, execution := range listing.Executions {
		assert.Equal(t, "wf-one", execution.WorkflowID)
	}
}

func TestAPIHandlers_GetExecution_NotFound(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/executions/exec-missing", nil)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_CancelExecution(t *testing.T) {
	t.Parallel()

	app, eng := setupTestApp(t)
	seedWorkflow(t, eng, "wf-done", models.TriggerSpec{Type: models.TriggerManual})

	ctx := context.Background()
	execID, err := eng.TriggerWorkflow(ctx, "wf-done", nil, "handler-test")
	require.NoError(t, err)
	require.NoError(t, eng.Wait(ctx, execID))

	// Cancelling a finished execution is a conflict, not a repeatable action.
	resp := doJSON(t, app, http.MethodPost, "/executions/"+execID+"/cancel", web.CancelExecutionRequest{
		CancelledBy: "handler-test",
	})

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/executions/exec-missing/cancel", nil)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_Webhook(t *testing.T) {
	t.Parallel()

	app, eng := setupTestApp(t)
	seedWorkflow(t, eng, "wf-hook", models.TriggerSpec{Type: models.TriggerWebhook})
	seedWorkflow(t, eng, "wf-manual", models.TriggerSpec{Type: models.TriggerManual})

	resp := doJSON(t, app, http.MethodPost, "/hooks/wf-hook", map[string]any{"content_id": "c-7"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var triggered web.TriggerWorkflowResponse

	decodeBody(t, resp, &triggered)
	require.NotEmpty(t, triggered.ExecutionID)
	require.NoError(t, eng.Wait(context.Background(), triggered.ExecutionID))

	execution, err := eng.GetExecution(triggered.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, "webhook", execution.TriggeredBy)
	assert.Equal(t, "c-7", execution.Context["content_id"])

	// Only webhook-triggered workflows accept webhook deliveries.
	resp = doJSON(t, app, http.MethodPost, "/hooks/wf-manual", nil)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPIHandlers_DispatchEvent(t *testing.T) {
	t.Parallel()

	app, eng := setupTestApp(t)
	seedWorkflow(t, eng, "wf-listener", models.TriggerSpec{
		Type:   models.TriggerEvent,
		Config: map[string]any{"event": "content.created"},
	})

	resp := doJSON(t, app, http.MethodPost, "/events", web.DispatchEventRequest{
		Event:   "content.created",
		Payload: map[string]any{"content_id": "c-3"},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var dispatched web.DispatchEventResponse

	decodeBody(t, resp, &dispatched)
	require.Len(t, dispatched.ExecutionIDs, 1)
	require.NoError(t, eng.Wait(context.Background(), dispatched.ExecutionIDs[0]))

	resp = doJSON(t, app, http.MethodPost, "/events", web.DispatchEventRequest{
		Event: "nobody.listens",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	decodeBody(t, resp, &dispatched)
	assert.Empty(t, dispatched.ExecutionIDs)

	resp = doJSON(t, app, http.MethodPost, "/events", web.DispatchEventRequest{})

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_SystemMetrics(t *testing.T) {
	t.Parallel()

	app, eng := setupTestApp(t)
	seedWorkflow(t, eng, "wf-m", models.TriggerSpec{Type: models.TriggerManual})

	ctx := context.Background()
	execID, err := eng.TriggerWorkflow(ctx, "wf-m", nil, "handler-test")
	require.NoError(t, err)
	require.NoError(t, eng.Wait(ctx, execID))

	resp := doJSON(t, app, http.MethodGet, "/metrics/system", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot engine.SystemMetrics

	decodeBody(t, resp, &snapshot)
	assert.Equal(t, 1, snapshot.TotalWorkflows)
	assert.Equal(t, 1, snapshot.ActiveWorkflows)
	assert.Equal(t, 1, snapshot.TotalExecutions)
	assert.Equal(t, 0, snapshot.ActiveExecutions)
	assert.Equal(t, 1, snapshot.Last24Hours.Executions)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any

	decodeBody(t, resp, &health)
	assert.Equal(t, "healthy", health["status"])
}

func stringPtr(s string) *string {
	return &s
}
