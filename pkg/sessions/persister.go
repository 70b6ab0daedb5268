package sessions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowedit/pkg/eventbus"
	"github.com/dukex/flowedit/pkg/events"
	"github.com/dukex/flowedit/pkg/log"
	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/persistence"
)

// Persister keeps the latest unsaved flow data of every edited workflow as its draft.
type Persister struct {
	store  persistence.Persistence
	logger *slog.Logger
}

func NewPersister(store persistence.Persistence, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = log.WithModule("persister")
	}

	return &Persister{store: store, logger: logger}
}

// Register subscribes the persister to workflow changes on bus.
func (p *Persister) Register(bus eventbus.EventSubscriber) error {
	return bus.Handle(events.WorkflowChangedEvent, p.HandleWorkflowChanged)
}

func (p *Persister) HandleWorkflowChanged(ctx context.Context, event any) error {
	changed, ok := event.(*events.WorkflowChanged)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	draft := &models.Draft{
		WorkflowID: changed.WorkflowID,
		FlowData:   changed.FlowData,
		UpdatedAt:  changed.Timestamp,
	}

	if err := p.store.SaveDraft(ctx, draft); err != nil {
		p.logger.Error("Failed to save workflow draft", "workflow_id", changed.WorkflowID, "error", err)

		return err
	}

	p.logger.Debug("Workflow draft saved", "workflow_id", changed.WorkflowID, "session_id", changed.SessionID)

	return nil
}
