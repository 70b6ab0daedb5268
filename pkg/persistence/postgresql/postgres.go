// Package postgresql provides PostgreSQL persistence implementation for workflows and drafts.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/dukex/flowedit/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	workflowRepo *WorkflowRepository
	draftRepo    *DraftRepository
}

var _ persistence.Persistence = (*Persistence)(nil)

// NewPersistence opens databaseURL, brings the schema up to date and returns the store.
// The connection is closed again when either step fails.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := sqlbase.NewMigrationManager(logger, database, migrations()).RunMigrations(ctx); err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		workflowRepo: NewWorkflowRepository(database, logger),
		draftRepo:    NewDraftRepository(database),
	}, nil
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Workflows returns all workflows from the database.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	return p.workflowRepo.GetAll(ctx)
}

// WorkflowByID returns a workflow by its ID.
func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return p.workflowRepo.GetByID(ctx, id)
}

// SaveWorkflow saves a workflow to the database.
func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return p.workflowRepo.Save(ctx, workflow)
}

// DeleteWorkflow soft deletes a workflow by setting deleted_at timestamp and drops its draft.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	err := p.workflowRepo.Delete(ctx, id)
	if err != nil {
		return err
	}

	return p.draftRepo.Delete(ctx, id)
}

// SaveDraft upserts the draft of a workflow.
func (p *Persistence) SaveDraft(ctx context.Context, draft *models.Draft) error {
	return p.draftRepo.Save(ctx, draft)
}

// DraftByWorkflowID returns the draft of a workflow.
func (p *Persistence) DraftByWorkflowID(ctx context.Context, workflowID string) (*models.Draft, error) {
	return p.draftRepo.GetByWorkflowID(ctx, workflowID)
}

// DeleteDraft removes the draft of a workflow.
func (p *Persistence) DeleteDraft(ctx context.Context, workflowID string) error {
	return p.draftRepo.Delete(ctx, workflowID)
}
