// Package persistence provides the storage abstraction for pipeline configurations.
package persistence

import (
	"context"

	"github.com/dukex/blitz/pkg/models"
)

// Persistence stores workflows. WorkflowByID and DeleteWorkflow report a missing workflow
// with an error matching ErrWorkflowNotFound.
type Persistence interface {
	// Workflows lists workflows, newest first. An empty businessID lists every business.
	Workflows(ctx context.Context, businessID string) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
