package sessions

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/flowedit/pkg/editor"
	"github.com/dukex/flowedit/pkg/eventbus"
	"github.com/dukex/flowedit/pkg/events"
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/otelhelper"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/dukex/flowedit/pkg/render"
	"go.opentelemetry.io/otel/attribute"
)

// Session is an open editor plus the host that persists and publishes what it does.
type Session struct {
	ID     string
	Editor *editor.Session

	// Restored reports whether the session opened a draft newer than the stored workflow.
	Restored bool

	manager *Manager
	logger  *slog.Logger

	// actions serializes Save and Preview with the results their callbacks leave behind.
	actions sync.Mutex

	mu         sync.Mutex
	workflow   models.Workflow
	lastUsed   time.Time
	clicked    *graph.Node
	editing    *graph.Node
	saveErr    error
	preview    []byte
	previewErr error
}

var _ editor.Host = (*Session)(nil)

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastUsed = now
}

// LastUsed returns when the session was last fetched from its manager.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastUsed
}

// Workflow returns the workflow as last saved by this session.
func (s *Session) Workflow() models.Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.workflow
}

// Clicked returns the node last clicked in the editor.
func (s *Session) Clicked() (graph.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clicked == nil {
		return graph.Node{}, false
	}

	return *s.clicked, true
}

// Editing returns the node whose edit dialog was last requested.
func (s *Session) Editing() (graph.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editing == nil {
		return graph.Node{}, false
	}

	return *s.editing, true
}

// Save asks the editor to save and returns the outcome of persisting the workflow.
func (s *Session) Save(ctx context.Context) (models.Workflow, error) {
	_, span := otelhelper.StartSpan(ctx, s.manager.tracer, "sessions.save",
		attribute.String(otelhelper.SessionIDKey, s.ID),
	)
	defer span.End()

	s.actions.Lock()
	defer s.actions.Unlock()

	s.setSaveResult(errors.New("save was not delivered"))

	if err := s.Editor.Save(); err != nil {
		otelhelper.SetError(span, err)

		return models.Workflow{}, err
	}

	s.mu.Lock()
	workflow, err := s.workflow, s.saveErr
	s.mu.Unlock()

	if err != nil {
		otelhelper.SetError(span, err)

		return models.Workflow{}, err
	}

	return workflow, nil
}

// Preview asks the editor for a preview and returns it as SVG.
func (s *Session) Preview(ctx context.Context) ([]byte, error) {
	s.actions.Lock()
	defer s.actions.Unlock()

	s.mu.Lock()
	s.preview, s.previewErr = nil, errors.New("preview was not delivered")
	s.mu.Unlock()

	if err := s.Editor.Preview(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.preview, s.previewErr
}

func (s *Session) setSaveResult(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saveErr = err
}

func (s *Session) OnNodeClick(node graph.Node) {
	s.mu.Lock()
	s.clicked = &node
	s.mu.Unlock()

	s.logger.Debug("Node clicked", "node_id", node.ID, "type", node.Type)
}

func (s *Session) OnEditNode(node graph.Node) {
	s.mu.Lock()
	s.editing = &node
	s.mu.Unlock()

	s.logger.Debug("Node edit requested", "node_id", node.ID, "type", node.Type)
}

// OnWorkflowChange publishes the new flow data so subscribers can keep a draft.
func (s *Session) OnWorkflowChange(flowData string) {
	var stats graph.Stats
	if doc, err := graph.ParseFlowData(flowData); err == nil {
		stats = doc.Stats()
	}

	event := events.NewWorkflowChanged(s.Editor.Workflow().ID, s.ID, flowData, stats.NodeCount, stats.EdgeCount)
	s.publish(context.Background(), event)
}

// OnSave persists the live document, drops the draft it supersedes and announces the save.
func (s *Session) OnSave() {
	ctx := context.Background()

	doc, err := s.Editor.Document()
	if err != nil {
		s.finishSave(err)

		return
	}

	flowData, err := graph.Marshal(doc)
	if err != nil {
		s.finishSave(err)

		return
	}

	workflow := s.Workflow()
	workflow.ApplyFlowData(flowData, doc)

	if err := s.manager.store.SaveWorkflow(ctx, &workflow); err != nil {
		s.logger.Error("Failed to save workflow", "error", err)
		s.finishSave(err)

		return
	}

	if err := s.manager.store.DeleteDraft(ctx, workflow.ID); err != nil && !persistence.IsDraftNotFound(err) {
		s.logger.Warn("Failed to delete workflow draft", "error", err)
	}

	s.mu.Lock()
	s.workflow = workflow
	s.mu.Unlock()

	s.finishSave(nil)
	s.logger.Info("Workflow saved", "nodes", workflow.NodeCount, "edges", workflow.EdgeCount)

	s.publish(ctx, events.NewWorkflowSaved(workflow.ID, s.ID, workflow.Name, workflow.ComplexityScore))
}

func (s *Session) finishSave(err error) {
	s.setSaveResult(err)
	s.manager.metrics.WorkflowSaved(err)
}

// OnPreview renders the live document.
func (s *Session) OnPreview() {
	doc, err := s.Editor.Document()

	var svg []byte
	if err == nil {
		svg, err = render.Preview(context.Background(), doc, render.Options{LeftToRight: true})
	}

	if err != nil {
		s.logger.Error("Failed to render preview", "error", err)
	}

	s.mu.Lock()
	s.preview, s.previewErr = svg, err
	s.mu.Unlock()
}

func (s *Session) publish(ctx context.Context, event eventbus.Event) {
	if s.manager.bus == nil {
		return
	}

	if err := s.manager.bus.Publish(ctx, s.Editor.Workflow().ID, event); err != nil {
		s.manager.metrics.PublishFailed(string(event.GetType()))
		s.logger.Error("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
