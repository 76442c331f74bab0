// Package persistence provides data storage abstraction for workflow definitions.
package persistence

import (
	"context"

	"github.com/mundotango/compas/pkg/models"
)

// Persistence stores workflow definitions. Executions are deliberately not
// persisted: they are ephemeral in-memory state owned by the engine.
type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
