// Package engine runs declarative workflows: it owns the workflow registry,
// the in-memory execution store, the cron scheduler and the execution loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/mundotango/compas/pkg/eventbus"
	"github.com/mundotango/compas/pkg/events"
	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/persistence"
	"github.com/mundotango/compas/pkg/registry"
)

var (
	// ErrWorkflowNotRunnable is returned when a trigger names a workflow that
	// does not exist or is not active. Triggering never creates an execution
	// in that case.
	ErrWorkflowNotRunnable = errors.New("workflow not runnable")

	ErrWorkflowNotFound   = errors.New("workflow not found")
	ErrExecutionNotFound  = errors.New("execution not found")
	ErrExecutionNotActive = errors.New("execution is not running")
	ErrInvalidWorkflow    = errors.New("invalid workflow definition")
)

// DefaultRetention is how long terminal executions stay queryable before the
// sweeper drops them.
const DefaultRetention = 7 * 24 * time.Hour

// Config wires the engine's collaborators. Registry and Logger are required;
// everything else degrades gracefully when absent.
type Config struct {
	Registry *registry.Registry
	EventBus eventbus.EventBus
	Store    persistence.Persistence
	Logger   *slog.Logger
	Tracer   trace.Tracer

	// Retention bounds how long finished executions are kept in memory.
	// Zero means DefaultRetention.
	Retention time.Duration

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// run tracks one in-flight execution goroutine.
type run struct {
	cancel      context.CancelFunc
	done        chan struct{}
	cancelledBy string
}

// Engine is the workflow engine. All exported methods are safe for
// concurrent use.
type Engine struct {
	mu         sync.RWMutex
	workflows  map[string]*models.Workflow
	executions map[string]*models.WorkflowExecution
	active     map[string]*run
	schedules  map[string]cron.EntryID

	registry  *registry.Registry
	bus       eventbus.EventBus
	store     persistence.Persistence
	logger    *slog.Logger
	tracer    trace.Tracer
	validate  *validator.Validate
	cron      *cron.Cron
	retention time.Duration
	now       func() time.Time

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// New builds an engine from the given config. The engine is usable
// immediately for CRUD and manual triggering; Start wires schedules, the
// retention sweeper and platform event intake.
func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, errors.New("engine requires a step registry")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("compas")
	}

	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	baseCtx, stop := context.WithCancel(context.Background())

	e := &Engine{
		workflows:  make(map[string]*models.Workflow),
		executions: make(map[string]*models.WorkflowExecution),
		active:     make(map[string]*run),
		schedules:  make(map[string]cron.EntryID),
		registry:   cfg.Registry,
		bus:        cfg.EventBus,
		store:      cfg.Store,
		logger:     logger.With("module", "engine"),
		tracer:     tracer,
		validate:   validator.New(),
		retention:  retention,
		now:        now,
		baseCtx:    baseCtx,
		stop:       stop,
	}

	cronLog := newCronLogger(e.logger)
	e.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLog),
		cron.Recover(cronLog),
	))

	return e, nil
}

// Start loads persisted workflows, installs schedules for active scheduled
// workflows, starts the cron runner and retention sweeper, and attaches the
// platform event intake when an event bus is configured.
func (e *Engine) Start(ctx context.Context) error {
	if e.store != nil {
		workflows, err := e.store.Workflows(ctx)
		if err != nil {
			return fmt.Errorf("failed to load workflows: %w", err)
		}

		e.mu.Lock()
		for _, wf := range workflows {
			if _, exists := e.workflows[wf.ID]; !exists {
				e.workflows[wf.ID] = wf
			}
		}
		e.mu.Unlock()

		e.logger.Info("Loaded workflows from store", "count", len(workflows))
	}

	e.mu.Lock()
	for _, wf := range e.workflows {
		e.installScheduleLocked(wf)
	}
	e.mu.Unlock()

	e.cron.Start()

	if e.bus != nil {
		err := e.bus.Handle(events.PlatformEventType, func(ctx context.Context, event any) error {
			platformEvent, ok := event.(*events.PlatformEvent)
			if !ok {
				return fmt.Errorf("unexpected platform event payload %T", event)
			}

			e.DispatchEvent(ctx, platformEvent.Name, platformEvent.Payload)

			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to attach platform event handler: %w", err)
		}
	}

	e.wg.Add(1)
	go e.sweepLoop()

	e.logger.Info("Workflow engine started")

	return nil
}

// Stop cancels all in-flight executions, halts the scheduler and waits for
// background work to drain.
func (e *Engine) Stop(ctx context.Context) error {
	e.stop()

	cronCtx := e.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	e.mu.RLock()
	running := make([]*run, 0, len(e.active))
	for _, r := range e.active {
		running = append(running, r)
	}
	e.mu.RUnlock()

	for _, r := range running {
		select {
		case <-r.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e.wg.Wait()
	e.logger.Info("Workflow engine stopped")

	return nil
}

// CreateWorkflow validates and registers a workflow definition. The id is
// generated when empty; version starts at 1.
func (e *Engine) CreateWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusDraft
	}

	if workflow.Version == 0 {
		workflow.Version = 1
	}

	timestamp := e.now()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = timestamp
	}
	workflow.UpdatedAt = timestamp

	if err := e.validateWorkflow(workflow); err != nil {
		return err
	}

	e.mu.Lock()
	if _, exists := e.workflows[workflow.ID]; exists {
		e.mu.Unlock()

		return persistence.NewWorkflowError("create", workflow.ID, persistence.ErrWorkflowAlreadyExists)
	}

	e.workflows[workflow.ID] = workflow
	e.installScheduleLocked(workflow)
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveWorkflow(ctx, workflow); err != nil {
			return fmt.Errorf("failed to persist workflow %s: %w", workflow.ID, err)
		}
	}

	e.publish(ctx, workflow.ID, events.WorkflowCreated{
		BaseEvent: events.NewBaseEvent(events.WorkflowCreatedEvent, workflow.ID),
		Name:      workflow.Name,
		Category:  string(workflow.Category),
	})

	e.logger.Info("Workflow created",
		"workflow_id", workflow.ID, "name", workflow.Name, "category", workflow.Category)

	return nil
}

// WorkflowUpdate carries the mutable fields of a workflow. Nil fields are
// left unchanged. Changing Steps or Trigger bumps the version.
type WorkflowUpdate struct {
	Name        *string
	Description *string
	Status      *models.WorkflowStatus
	Trigger     *models.TriggerSpec
	Steps       []*models.WorkflowStep
	Variables   map[string]any
}

// UpdateWorkflow applies a partial update to a workflow definition.
func (e *Engine) UpdateWorkflow(ctx context.Context, id string, update WorkflowUpdate) (*models.Workflow, error) {
	e.mu.Lock()
	workflow, ok := e.workflows[id]
	if !ok {
		e.mu.Unlock()

		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}

	updated := *workflow
	structural := false

	if update.Name != nil {
		updated.Name = *update.Name
	}

	if update.Description != nil {
		updated.Description = *update.Description
	}

	if update.Status != nil {
		updated.Status = *update.Status
	}

	if update.Trigger != nil {
		updated.Trigger = *update.Trigger
		structural = true
	}

	if update.Steps != nil {
		updated.Steps = update.Steps
		structural = true
	}

	if update.Variables != nil {
		updated.Variables = update.Variables
	}

	if structural {
		updated.Version++
	}

	updated.UpdatedAt = e.now()

	if err := e.validateWorkflow(&updated); err != nil {
		e.mu.Unlock()

		return nil, err
	}

	e.workflows[id] = &updated
	e.removeScheduleLocked(id)
	e.installScheduleLocked(&updated)
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveWorkflow(ctx, &updated); err != nil {
			return nil, fmt.Errorf("failed to persist workflow %s: %w", id, err)
		}
	}

	e.publish(ctx, id, events.WorkflowUpdated{
		BaseEvent: events.NewBaseEvent(events.WorkflowUpdatedEvent, id),
		Version:   updated.Version,
	})

	e.logger.Info("Workflow updated", "workflow_id", id, "version", updated.Version)

	return &updated, nil
}

// DeleteWorkflow removes a workflow definition. Past executions stay
// queryable until retention drops them.
func (e *Engine) DeleteWorkflow(ctx context.Context, id string) error {
	e.mu.Lock()
	if _, ok := e.workflows[id]; !ok {
		e.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}

	delete(e.workflows, id)
	e.removeScheduleLocked(id)
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.DeleteWorkflow(ctx, id); err != nil &&
			!persistence.IsWorkflowNotFound(err) {
			return fmt.Errorf("failed to delete workflow %s: %w", id, err)
		}
	}

	e.logger.Info("Workflow deleted", "workflow_id", id)

	return nil
}

// GetWorkflow returns the workflow with the given id.
func (e *Engine) GetWorkflow(id string) (*models.Workflow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	workflow, ok := e.workflows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}

	return workflow, nil
}

// Workflows lists all workflow definitions, optionally filtered by category.
func (e *Engine) Workflows(category models.WorkflowCategory) []*models.Workflow {
	e.mu.RLock()
	defer e.mu.RUnlock()

	workflows := make([]*models.Workflow, 0, len(e.workflows))
	for _, wf := range e.workflows {
		if category != "" && wf.Category != category {
			continue
		}

		workflows = append(workflows, wf)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt) ||
			(workflows[i].CreatedAt.Equal(workflows[j].CreatedAt) && workflows[i].ID < workflows[j].ID)
	})

	return workflows
}

// validateWorkflow checks struct constraints, step graph integrity and the
// per-type config schemas.
func (e *Engine) validateWorkflow(workflow *models.Workflow) error {
	if err := e.validate.Struct(workflow); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
	}

	seen := make(map[string]bool, len(workflow.Steps))
	for _, step := range workflow.Steps {
		if seen[step.ID] {
			return fmt.Errorf("%w: duplicate step id %q", ErrInvalidWorkflow, step.ID)
		}

		seen[step.ID] = true
	}

	for _, step := range workflow.Steps {
		for _, next := range step.NextSteps {
			if !seen[next] {
				return fmt.Errorf("%w: step %q points to unknown step %q",
					ErrInvalidWorkflow, step.ID, next)
			}
		}

		if step.OnError != "" && !seen[step.OnError] {
			return fmt.Errorf("%w: step %q names unknown on_error step %q",
				ErrInvalidWorkflow, step.ID, step.OnError)
		}
	}

	if err := e.registry.ValidateWorkflowSteps(workflow); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
	}

	if workflow.Trigger.Type == models.TriggerSchedule {
		if _, err := cron.ParseStandard(workflow.Trigger.CronExpr()); err != nil {
			return fmt.Errorf("%w: bad cron expression %q: %w",
				ErrInvalidWorkflow, workflow.Trigger.CronExpr(), err)
		}
	}

	return nil
}

// publish sends a lifecycle event when an event bus is wired. Publishing is
// best-effort: a bus failure is logged, never surfaced to callers.
func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.Error("Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
