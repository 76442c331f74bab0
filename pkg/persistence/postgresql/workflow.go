package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/persistence"
)

// WorkflowRepository handles workflow rows. The step graph, trigger and
// variables are stored as JSONB documents.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{
		db:     db,
		logger: logger.With("module", "postgresql_workflow_repository"),
	}
}

const workflowColumns = `id, name, description, category, status, version, trigger_spec, steps, variables, created_by, created_at, updated_at`

func (wr *WorkflowRepository) All(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := wr.db.QueryContext(ctx, `SELECT `+workflowColumns+` FROM workflows ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer rows.Close()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workflows: %w", err)
	}

	return workflows, nil
}

func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := wr.db.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	trigger, err := json.Marshal(workflow.Trigger)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	steps, err := json.Marshal(workflow.Steps)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	variables, err := json.Marshal(workflow.Variables)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	_, err = wr.db.ExecContext(ctx, `
		INSERT INTO workflows (`+workflowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			status = EXCLUDED.status,
			version = EXCLUDED.version,
			trigger_spec = EXCLUDED.trigger_spec,
			steps = EXCLUDED.steps,
			variables = EXCLUDED.variables,
			updated_at = EXCLUDED.updated_at`,
		workflow.ID, workflow.Name, workflow.Description, workflow.Category,
		workflow.Status, workflow.Version, trigger, steps, variables,
		workflow.CreatedBy, workflow.CreatedAt, workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := wr.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow  models.Workflow
		trigger   []byte
		steps     []byte
		variables []byte
	)

	err := row.Scan(
		&workflow.ID, &workflow.Name, &workflow.Description, &workflow.Category,
		&workflow.Status, &workflow.Version, &trigger, &steps, &variables,
		&workflow.CreatedBy, &workflow.CreatedAt, &workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(trigger, &workflow.Trigger); err != nil {
		return nil, fmt.Errorf("failed to decode trigger for workflow %s: %w", workflow.ID, err)
	}

	if err := json.Unmarshal(steps, &workflow.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode steps for workflow %s: %w", workflow.ID, err)
	}

	if err := json.Unmarshal(variables, &workflow.Variables); err != nil {
		return nil, fmt.Errorf("failed to decode variables for workflow %s: %w", workflow.ID, err)
	}

	return &workflow, nil
}
