// Package persistence provides data storage abstraction layer for workflows and their drafts.
package persistence

import (
	"context"

	"github.com/dukex/flowedit/pkg/models"
)

type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error

	// SaveDraft stores the latest unsaved flow data of a workflow, replacing any previous draft.
	SaveDraft(ctx context.Context, draft *models.Draft) error
	DraftByWorkflowID(ctx context.Context, workflowID string) (*models.Draft, error)
	DeleteDraft(ctx context.Context, workflowID string) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
