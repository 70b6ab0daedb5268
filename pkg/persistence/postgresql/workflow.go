package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/google/uuid"
)

const workflowColumns = `
			id
		  , name
		  , flow_data
		  , type
		  , complexity_score
		  , node_count
		  , edge_count
		  , created_at
		  , updated_at
`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// GetAll returns all workflows from the database.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT` + workflowColumns + `
		FROM workflows
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func(ctx context.Context, r *WorkflowRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// GetByID returns a workflow that has not been deleted.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	query := `SELECT` + workflowColumns + `
		FROM workflows
		WHERE id = $1 AND deleted_at IS NULL
	`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// Save upserts a workflow, assigning an ID to new workflows.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	if _, err := uuid.Parse(workflow.ID); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, persistence.ErrInvalidID)
	}

	query := `
		INSERT INTO workflows (id, name, flow_data, type, complexity_score, node_count, edge_count, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			flow_data = EXCLUDED.flow_data,
			type = EXCLUDED.type,
			complexity_score = EXCLUDED.complexity_score,
			node_count = EXCLUDED.node_count,
			edge_count = EXCLUDED.edge_count,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
	`

	_, err := r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.FlowData,
		workflow.Type,
		workflow.ComplexityScore,
		workflow.NodeCount,
		workflow.EdgeCount,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

// Delete soft deletes a workflow.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}

	_, err := r.db.ExecContext(ctx, "UPDATE workflows SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

func scanWorkflow(scanner interface{ Scan(dest ...any) error }) (*models.Workflow, error) {
	var (
		workflow     models.Workflow
		workflowType string
	)

	err := scanner.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.FlowData,
		&workflowType,
		&workflow.ComplexityScore,
		&workflow.NodeCount,
		&workflow.EdgeCount,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.Type = models.WorkflowType(workflowType)

	return &workflow, nil
}

// DraftRepository handles draft rows.
type DraftRepository struct {
	db *sql.DB
}

// NewDraftRepository creates a new draft repository.
func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// GetByWorkflowID returns the draft of a workflow.
func (r *DraftRepository) GetByWorkflowID(ctx context.Context, workflowID string) (*models.Draft, error) {
	if _, err := uuid.Parse(workflowID); err != nil {
		return nil, persistence.NewWorkflowError("DraftByWorkflowID", workflowID, persistence.ErrDraftNotFound)
	}

	draft := models.Draft{WorkflowID: workflowID}

	err := r.db.QueryRowContext(ctx,
		"SELECT flow_data, updated_at FROM workflow_drafts WHERE workflow_id = $1", workflowID,
	).Scan(&draft.FlowData, &draft.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("DraftByWorkflowID", workflowID, persistence.ErrDraftNotFound)
		}

		return nil, fmt.Errorf("failed to query draft: %w", err)
	}

	return &draft, nil
}

// Save upserts a draft.
func (r *DraftRepository) Save(ctx context.Context, draft *models.Draft) error {
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO workflow_drafts (workflow_id, flow_data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (workflow_id) DO UPDATE SET
			flow_data = EXCLUDED.flow_data,
			updated_at = EXCLUDED.updated_at
	`, draft.WorkflowID, draft.FlowData, draft.UpdatedAt)
	if err != nil {
		return persistence.NewWorkflowError("SaveDraft", draft.WorkflowID, err)
	}

	return nil
}

// Delete removes the draft of a workflow.
func (r *DraftRepository) Delete(ctx context.Context, workflowID string) error {
	if _, err := uuid.Parse(workflowID); err != nil {
		return nil
	}

	_, err := r.db.ExecContext(ctx, "DELETE FROM workflow_drafts WHERE workflow_id = $1", workflowID)
	if err != nil {
		return persistence.NewWorkflowError("DeleteDraft", workflowID, err)
	}

	return nil
}
