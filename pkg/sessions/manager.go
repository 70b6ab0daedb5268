// Package sessions keeps the editor sessions opened through the API, restores unsaved
// drafts when a workflow is reopened and closes sessions left idle.
package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/flowedit/pkg/editor"
	"github.com/dukex/flowedit/pkg/eventbus"
	"github.com/dukex/flowedit/pkg/history"
	"github.com/dukex/flowedit/pkg/log"
	"github.com/dukex/flowedit/pkg/metrics"
	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/otelhelper"
	"github.com/dukex/flowedit/pkg/palette"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultIdleTimeout is how long a session may go unused before it is reaped.
const DefaultIdleTimeout = 30 * time.Minute

// Option configures a Manager.
type Option func(*Manager)

// WithPalette sets the node palette used by every session the manager opens.
func WithPalette(p *palette.Palette) Option {
	return func(m *Manager) {
		m.palette = p
	}
}

// WithHistoryDepth bounds the undo stack of each session.
func WithHistoryDepth(depth int) Option {
	return func(m *Manager) {
		m.historyDepth = depth
	}
}

// WithIdleTimeout sets how long a session may go unused before Reap closes it.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.idleTimeout = timeout
	}
}

// WithMetrics records session and mutation counters on mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithTracer sets the tracer used for the sessions.open span.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		m.tracer = tracer
	}
}

// WithLogger replaces the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLoader overrides how sessions create their canvas engine.
func WithLoader(loader editor.Loader) Option {
	return func(m *Manager) {
		m.loader = loader
	}
}

// WithClock overrides the time source used for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager owns the open editor sessions, keyed by session id.
type Manager struct {
	store        persistence.Persistence
	bus          eventbus.EventPublisher
	palette      *palette.Palette
	historyDepth int
	idleTimeout  time.Duration
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	logger       *slog.Logger
	loader       editor.Loader
	now          func() time.Time

	mu       sync.Mutex
	closed   bool
	sessions map[string]*Session
	cron     *cron.Cron
}

// NewManager returns a Manager that loads workflows from store and publishes
// session events on bus.
func NewManager(store persistence.Persistence, bus eventbus.EventPublisher, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		bus:          bus,
		palette:      palette.Default(),
		historyDepth: history.DefaultMaxDepth,
		idleTimeout:  DefaultIdleTimeout,
		tracer:       noop.NewTracerProvider().Tracer("sessions"),
		logger:       log.WithModule("sessions"),
		loader:       editor.DefaultLoader,
		now:          time.Now,
		sessions:     make(map[string]*Session),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.metrics == nil {
		m.metrics = metrics.NewNop()
	}

	return m
}

// Open mounts an editor for the stored workflow and waits for it to become ready. A draft
// newer than the stored workflow replaces its flow data.
func (m *Manager) Open(ctx context.Context, workflowID string) (*Session, error) {
	ctx, span := otelhelper.StartSpan(ctx, m.tracer, "sessions.open", attribute.String(otelhelper.WorkflowIDKey, workflowID))
	defer span.End()

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, ErrManagerClosed
	}

	workflow, err := m.store.WorkflowByID(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	restored := m.restoreDraft(ctx, workflow)

	sessionID := uuid.NewString()
	logger := m.logger.With("session_id", sessionID, "workflow_id", workflow.ID)

	session := &Session{
		ID:       sessionID,
		Restored: restored,
		manager:  m,
		logger:   logger,
		workflow: *workflow,
		lastUsed: m.now(),
	}

	session.Editor = editor.NewSession(*workflow, session,
		editor.WithLoader(m.loader),
		editor.WithPalette(m.palette),
		editor.WithHistoryDepth(m.historyDepth),
		editor.WithLogger(logger),
		editor.WithEventObserver(func(e editor.Event) {
			m.metrics.EditorEvent(string(e.Activity))
		}),
	)

	if err := session.Editor.Mount(context.WithoutCancel(ctx)); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("mount session: %w", err)
	}

	if err := session.Editor.Wait(ctx); err != nil {
		_ = session.Editor.Unmount()

		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("wait for session: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()

		_ = session.Editor.Unmount()

		return nil, ErrManagerClosed
	}

	m.sessions[sessionID] = session
	m.mu.Unlock()

	m.metrics.SessionOpened()
	span.SetAttributes(attribute.String(otelhelper.SessionIDKey, sessionID))
	logger.Info("Editor session opened", "restored_draft", restored)

	return session, nil
}

func (m *Manager) restoreDraft(ctx context.Context, workflow *models.Workflow) bool {
	draft, err := m.store.DraftByWorkflowID(ctx, workflow.ID)
	if err != nil {
		if !persistence.IsDraftNotFound(err) {
			m.logger.Warn("Failed to read workflow draft", "workflow_id", workflow.ID, "error", err)
		}

		return false
	}

	if !draft.UpdatedAt.After(workflow.UpdatedAt) {
		return false
	}

	workflow.FlowData = draft.FlowData

	return true
}

// Get returns an open session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	session.touch(m.now())

	return session, nil
}

// Sessions returns the open sessions.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}

	return out
}

// Close unmounts a session and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	return m.unmount(session, false)
}

func (m *Manager) unmount(session *Session, reaped bool) error {
	m.metrics.SessionClosed(reaped)

	if err := session.Editor.Unmount(); err != nil {
		session.logger.Error("Failed to unmount session", "error", err)

		return err
	}

	session.logger.Info("Editor session closed", "reaped", reaped)

	return nil
}

// Reap closes every session unused for longer than the idle timeout and returns how
// many were closed.
func (m *Manager) Reap() int {
	now := m.now()

	m.mu.Lock()

	idle := make([]*Session, 0)

	for id, session := range m.sessions {
		if now.Sub(session.LastUsed()) > m.idleTimeout {
			idle = append(idle, session)
			delete(m.sessions, id)
		}
	}

	m.mu.Unlock()

	for _, session := range idle {
		_ = m.unmount(session, true)
	}

	if len(idle) > 0 {
		m.logger.Info("Reaped idle sessions", "count", len(idle))
	}

	return len(idle)
}

// StartReaper runs Reap on the given cron schedule until CloseAll.
func (m *Manager) StartReaper(schedule string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}

	if m.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := c.AddFunc(schedule, func() { m.Reap() }); err != nil {
		return fmt.Errorf("failed to schedule session reaper '%s': %w", schedule, err)
	}

	c.Start()
	m.cron = c

	m.logger.Info("Session reaper started", "schedule", schedule, "idle_timeout", m.idleTimeout)

	return nil
}

// CloseAll stops the reaper and unmounts every session. The manager accepts no new
// sessions afterwards.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	m.closed = true

	reaper := m.cron
	m.cron = nil

	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}

	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	if reaper != nil {
		<-reaper.Stop().Done()
	}

	var firstErr error

	for _, session := range open {
		if err := m.unmount(session, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
