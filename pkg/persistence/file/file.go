// Package file provides file-based persistence implementation for workflows and drafts.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
	draftRepo    *DraftRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowRepository(cleanRoot),
		draftRepo:    NewDraftRepository(cleanRoot),
	}
}

var _ persistence.Persistence = (*Persistence)(nil)

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

func (fp *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	return fp.workflowRepo.GetAll(ctx)
}

func (fp *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return fp.workflowRepo.GetByID(ctx, id)
}

func (fp *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return fp.workflowRepo.Save(ctx, workflow)
}

// DeleteWorkflow removes a workflow and its draft.
func (fp *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	if err := fp.workflowRepo.Delete(ctx, id); err != nil {
		return err
	}

	return fp.draftRepo.Delete(ctx, id)
}

func (fp *Persistence) SaveDraft(ctx context.Context, draft *models.Draft) error {
	return fp.draftRepo.Save(ctx, draft)
}

func (fp *Persistence) DraftByWorkflowID(ctx context.Context, workflowID string) (*models.Draft, error) {
	return fp.draftRepo.GetByWorkflowID(ctx, workflowID)
}

func (fp *Persistence) DeleteDraft(ctx context.Context, workflowID string) error {
	return fp.draftRepo.Delete(ctx, workflowID)
}
