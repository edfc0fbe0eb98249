// Package services holds the use cases behind the HTTP API: managing pipeline
// configurations and answering chat messages with them.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/blitz/pkg/eventbus"
	"github.com/dukex/blitz/pkg/events"
	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/persistence"
	"github.com/dukex/blitz/pkg/pipeline"
	"github.com/dukex/blitz/pkg/registry"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service. A nil publisher drops events.
func NewWorkflow(p persistence.Persistence, reg *registry.Registry, publisher eventbus.EventPublisher, logger *slog.Logger) *Workflow {
	if publisher == nil {
		publisher = eventbus.NopPublisher{}
	}

	if reg == nil {
		reg = registry.NewDefaultRegistry()
	}

	return &Workflow{
		persistence: p,
		registry:    reg,
		publisher:   publisher,
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns the workflows of businessID, or all of them when it is empty.
func (w *Workflow) List(ctx context.Context, businessID string) ([]*models.Workflow, error) {
	workflows, err := w.persistence.Workflows(ctx, strings.TrimSpace(businessID))
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowByID(ctx, id)
}

// Validate checks a workflow without storing it.
func (w *Workflow) Validate(workflow *models.Workflow) *pipeline.Report {
	return pipeline.Validate(workflow, pipeline.WithRegistry(w.registry))
}

// Save validates and stores workflow under id, creating or replacing it.
func (w *Workflow) Save(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	workflow.ID = id

	if err := persistence.ValidateWorkflowID(id); err != nil {
		return nil, invalidRequest("Save", err)
	}

	if report := w.Validate(workflow); !report.Valid {
		return nil, invalidWorkflow("Save", report.Errors...)
	}

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	base := events.NewBaseEvent(events.WorkflowSavedEvent, workflow.ID)
	base.BusinessID = workflow.BusinessID
	w.publish(ctx, workflow.ID, events.WorkflowSaved{BaseEvent: base, Name: workflow.Name, NodeCount: len(workflow.Nodes)})

	return workflow, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	if err := w.persistence.DeleteWorkflow(ctx, workflowID); err != nil {
		return err
	}

	w.publish(ctx, workflowID, events.WorkflowDeleted{BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, workflowID)})

	return nil
}

func (w *Workflow) publish(ctx context.Context, key string, event eventbus.Event) {
	if err := w.publisher.Publish(ctx, key, event); err != nil {
		w.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
