// Package redis provides a Redis persistence implementation for workflows and drafts.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "flowedit:"
	workflowsSet = keyPrefix + "workflows"
)

// Persistence stores each workflow and draft as a JSON value, with a sorted set of
// workflow ids scored by creation time for listing.
type Persistence struct {
	client redis.UniversalClient
	logger *slog.Logger
}

var _ persistence.Persistence = (*Persistence)(nil)

// NewPersistence connects to the Redis server at a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return NewPersistenceWithClient(client, logger), nil
}

// NewPersistenceWithClient wraps an existing client.
func NewPersistenceWithClient(client redis.UniversalClient, logger *slog.Logger) *Persistence {
	return &Persistence{client: client, logger: logger}
}

func workflowKey(id string) string {
	return keyPrefix + "workflow:" + id
}

func draftKey(workflowID string) string {
	return keyPrefix + "draft:" + workflowID
}

// Close closes the client.
func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Workflows returns every workflow, newest first.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := p.client.ZRevRange(ctx, workflowsSet, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))
	if len(ids) == 0 {
		return workflows, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = workflowKey(id)
	}

	values, err := p.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load workflows: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			p.logger.WarnContext(ctx, "Workflow listed without a value", "workflow_id", ids[i])

			continue
		}

		var workflow models.Workflow
		if err := json.Unmarshal([]byte(raw), &workflow); err != nil {
			return nil, persistence.NewWorkflowError("GetAll", ids[i], err)
		}

		workflows = append(workflows, &workflow)
	}

	return workflows, nil
}

// WorkflowByID returns one workflow.
func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := p.get(ctx, workflowKey(id), &workflow)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return &workflow, nil
}

// SaveWorkflow stores a workflow, assigning an ID to new workflows.
func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
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

	data, err := json.Marshal(workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, workflowKey(workflow.ID), data, 0)
		pipe.ZAdd(ctx, workflowsSet, redis.Z{Score: float64(workflow.CreatedAt.UnixNano()), Member: workflow.ID})

		return nil
	})
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// DeleteWorkflow removes a workflow and its draft.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, workflowKey(id), draftKey(id))
		pipe.ZRem(ctx, workflowsSet, id)

		return nil
	})
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

// SaveDraft replaces the draft of a workflow.
func (p *Persistence) SaveDraft(ctx context.Context, draft *models.Draft) error {
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(draft)
	if err != nil {
		return persistence.NewWorkflowError("SaveDraft", draft.WorkflowID, err)
	}

	err = p.client.Set(ctx, draftKey(draft.WorkflowID), data, 0).Err()
	if err != nil {
		return persistence.NewWorkflowError("SaveDraft", draft.WorkflowID, err)
	}

	return nil
}

// DraftByWorkflowID returns the draft of a workflow.
func (p *Persistence) DraftByWorkflowID(ctx context.Context, workflowID string) (*models.Draft, error) {
	var draft models.Draft

	err := p.get(ctx, draftKey(workflowID), &draft)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewWorkflowError("DraftByWorkflowID", workflowID, persistence.ErrDraftNotFound)
		}

		return nil, persistence.NewWorkflowError("DraftByWorkflowID", workflowID, err)
	}

	return &draft, nil
}

// DeleteDraft removes the draft of a workflow.
func (p *Persistence) DeleteDraft(ctx context.Context, workflowID string) error {
	err := p.client.Del(ctx, draftKey(workflowID)).Err()
	if err != nil {
		return persistence.NewWorkflowError("DeleteDraft", workflowID, err)
	}

	return nil
}

func (p *Persistence) get(ctx context.Context, key string, v any) error {
	raw, err := p.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, v)
}
