// Package file provides file-based persistence for workflows, one JSON document per workflow.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/persistence"
	"github.com/google/uuid"
)

const workflowsDir = "workflows"

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Workflows returns the stored workflows, newest first.
func (fp *Persistence) Workflows(ctx context.Context, businessID string) ([]*models.Workflow, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	files, err := fs.Glob(os.DirFS(fp.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(files))

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		workflow, err := fp.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}

		if businessID != "" && workflow.BusinessID != businessID {
			continue
		}

		workflows = append(workflows, workflow)
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// WorkflowByID retrieves a workflow by its ID from the file system.
func (fp *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	if err := persistence.ValidateWorkflowID(id); err != nil {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, err)
	}

	fp.mu.RLock()
	defer fp.mu.RUnlock()

	return fp.read(id)
}

// SaveWorkflow writes a workflow, assigning an ID when it has none. CreatedAt survives updates.
func (fp *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
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

	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := os.MkdirAll(fp.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now

		if existing, err := fp.read(workflow.ID); err == nil {
			workflow.CreatedAt = existing.CreatedAt
		}
	}

	workflow.UpdatedAt = now

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	// Write then rename so readers never see a partial document.
	tmp := fp.path(workflow.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", workflow.ID, err)
	}

	if err := os.Rename(tmp, fp.path(workflow.ID)); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("failed to write workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// DeleteWorkflow removes a workflow by its ID.
func (fp *Persistence) DeleteWorkflow(_ context.Context, id string) error {
	if err := persistence.ValidateWorkflowID(id); err != nil {
		return persistence.NewWorkflowError("DeleteWorkflow", id, err)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	err := os.Remove(fp.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

func (fp *Persistence) read(id string) (*models.Workflow, error) {
	body, err := os.ReadFile(fp.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	var workflow models.Workflow

	if err := json.Unmarshal(body, &workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return &workflow, nil
}

func (fp *Persistence) dir() string {
	return filepath.Join(fp.root, workflowsDir)
}

func (fp *Persistence) path(id string) string {
	return filepath.Join(fp.dir(), id+".json")
}
