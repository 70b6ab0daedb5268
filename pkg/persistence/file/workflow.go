package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	dir string
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{dir: filepath.Join(root, "workflows")}
}

// GetAll returns every stored workflow, newest first.
func (wr *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	jsonFiles, err := fs.Glob(os.DirFS(wr.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflow, err := wr.GetByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := readJSON(wr.dir, workflowID, &workflow)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("GetByID", workflowID, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", workflowID, err)
	}

	return &workflow, nil
}

// Save saves a workflow to the file system, assigning an ID to new workflows.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	err := writeJSON(wr.dir, workflow.ID, workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow by its ID.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	err := removeJSON(wr.dir, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

// DraftRepository keeps one draft file per workflow.
type DraftRepository struct {
	dir string
}

// NewDraftRepository creates a new draft repository.
func NewDraftRepository(root string) *DraftRepository {
	return &DraftRepository{dir: filepath.Join(root, "drafts")}
}

// GetByWorkflowID returns the draft of a workflow.
func (dr *DraftRepository) GetByWorkflowID(_ context.Context, workflowID string) (*models.Draft, error) {
	var draft models.Draft

	err := readJSON(dr.dir, workflowID, &draft)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("DraftByWorkflowID", workflowID, persistence.ErrDraftNotFound)
		}

		return nil, persistence.NewWorkflowError("DraftByWorkflowID", workflowID, err)
	}

	return &draft, nil
}

// Save replaces the draft of a workflow.
func (dr *DraftRepository) Save(_ context.Context, draft *models.Draft) error {
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = time.Now().UTC()
	}

	err := writeJSON(dr.dir, draft.WorkflowID, draft)
	if err != nil {
		return persistence.NewWorkflowError("SaveDraft", draft.WorkflowID, err)
	}

	return nil
}

// Delete removes the draft of a workflow, if any.
func (dr *DraftRepository) Delete(_ context.Context, workflowID string) error {
	err := removeJSON(dr.dir, workflowID)
	if err != nil {
		return persistence.NewWorkflowError("DeleteDraft", workflowID, err)
	}

	return nil
}

func recordPath(dir, id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", persistence.ErrInvalidID, id)
	}

	return filepath.Join(dir, id+".json"), nil
}

func readJSON(dir, id string, v any) error {
	filePath, err := recordPath(dir, id)
	if err != nil {
		return err
	}

	body, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	err = json.Unmarshal(body, v)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filePath, err)
	}

	return nil
}

func writeJSON(dir, id string, v any) error {
	filePath, err := recordPath(dir, id)
	if err != nil {
		return err
	}

	err = os.MkdirAll(dir, 0o750)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	return os.WriteFile(filePath, data, 0o600)
}

func removeJSON(dir, id string) error {
	filePath, err := recordPath(dir, id)
	if err != nil {
		return err
	}

	err = os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", filePath, err)
	}

	return nil
}
