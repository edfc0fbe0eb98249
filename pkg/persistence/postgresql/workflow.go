package postgresql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/persistence"
	"github.com/google/uuid"
)

const (
	workflowColumns = `id, business_id, name, description, nodes, metadata, created_at, updated_at`

	listWorkflows = `SELECT ` + workflowColumns + ` FROM workflows
		WHERE ($1 = '' OR business_id = $1)
		ORDER BY created_at DESC`

	workflowByID = `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	upsertWorkflow = `INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			business_id = EXCLUDED.business_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			nodes = EXCLUDED.nodes,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at`

	deleteWorkflow = `DELETE FROM workflows WHERE id = $1`
)

// jsonb maps the value behind ptr onto a JSONB column.
type jsonb[T any] struct {
	ptr *T
}

func (j jsonb[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(j.ptr)
	if err != nil {
		return nil, err
	}

	return string(data), nil
}

func (j jsonb[T]) Scan(src any) error {
	switch data := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(data, j.ptr)
	case string:
		return json.Unmarshal([]byte(data), j.ptr)
	default:
		return fmt.Errorf("cannot scan %T into a JSONB column", src)
	}
}

// WorkflowRepository reads and writes the workflows table.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// Workflows returns workflows newest first, optionally scoped to one business.
func (r *WorkflowRepository) Workflows(ctx context.Context, businessID string) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, listWorkflows, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "Failed to close rows", "error", err)
		}
	}()

	workflows := []*models.Workflow{}

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, rows.Err()
}

// WorkflowByID returns the workflow or an error matching persistence.ErrWorkflowNotFound.
func (r *WorkflowRepository) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, workflowByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
	}

	return workflow, err
}

// SaveWorkflow upserts a workflow, assigning a UUIDv7 when it has no id. An update keeps the
// stored created_at.
func (r *WorkflowRepository) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	if err := persistence.ValidateWorkflowID(workflow.ID); err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	workflow.UpdatedAt = time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = workflow.UpdatedAt
	}

	if workflow.Nodes == nil {
		workflow.Nodes = []*models.WorkflowNode{}
	}

	err := r.db.QueryRowContext(ctx, upsertWorkflow,
		workflow.ID,
		workflow.BusinessID,
		workflow.Name,
		workflow.Description,
		jsonb[[]*models.WorkflowNode]{&workflow.Nodes},
		jsonb[map[string]any]{&workflow.Metadata},
		workflow.CreatedAt,
		workflow.UpdatedAt,
	).Scan(&workflow.CreatedAt)
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, deleteWorkflow, id)
	if err != nil {
		return persistence.NewWorkflowError("DeleteWorkflow", id, err)
	}

	if affected, err := result.RowsAffected(); err != nil {
		return persistence.NewWorkflowError("DeleteWorkflow", id, err)
	} else if affected == 0 {
		return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var workflow models.Workflow

	err := row.Scan(
		&workflow.ID,
		&workflow.BusinessID,
		&workflow.Name,
		&workflow.Description,
		jsonb[[]*models.WorkflowNode]{&workflow.Nodes},
		jsonb[map[string]any]{&workflow.Metadata},
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return &workflow, nil
}
