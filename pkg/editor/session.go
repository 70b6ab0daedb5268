// Package editor implements one mounted workflow editor: it owns the canvas engine for the
// lifetime of the mount, turns gestures into bridge commands and keeps undo/redo history
// in step with every structural change.
package editor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukex/flowedit/pkg/bridge"
	"github.com/dukex/flowedit/pkg/canvas"
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/history"
	"github.com/dukex/flowedit/pkg/log"
	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/palette"
)

// Loader creates the canvas engine when a session is mounted.
type Loader func(ctx context.Context) (*canvas.Editor, error)

// DefaultLoader opens a headless canvas engine.
func DefaultLoader(ctx context.Context) (*canvas.Editor, error) {
	return canvas.Open(ctx)
}

// Option configures a Session.
type Option func(*Session)

// WithLoader overrides how the canvas engine is created.
func WithLoader(loader Loader) Option {
	return func(s *Session) {
		s.loader = loader
	}
}

// WithPalette sets the palette used for the data of dropped nodes.
func WithPalette(p *palette.Palette) Option {
	return func(s *Session) {
		s.palette = p
	}
}

// WithHistoryDepth bounds the undo stack.
func WithHistoryDepth(depth int) Option {
	return func(s *Session) {
		s.historyDepth = depth
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithEventObserver registers fn to be told about every mutation, undo, redo and
// transient canvas event.
func WithEventObserver(fn func(Event)) Option {
	return func(s *Session) {
		s.observers = append(s.observers, fn)
	}
}

// WithIDGenerator overrides how ids of new nodes are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *Session) {
		s.newID = newID
	}
}

// Session is one editor component. It is safe for concurrent use.
type Session struct {
	workflow     models.Workflow
	host         Host
	loader       Loader
	palette      *palette.Palette
	historyDepth int
	logger       *slog.Logger
	observers    []func(Event)
	newID        func() string

	mu          sync.Mutex
	mounted     bool
	initialized bool
	unmounted   bool
	ready       chan struct{}
	cancel      context.CancelFunc
	bridge      *bridge.Bridge
	history     *history.Manager
	selection   Selection
	pending     []func()
}

// NewSession creates an unmounted editor for workflow. A nil host discards every output.
func NewSession(workflow models.Workflow, host Host, opts ...Option) *Session {
	if host == nil {
		host = HostFuncs{}
	}

	s := &Session{
		workflow:     workflow,
		host:         host,
		loader:       DefaultLoader,
		palette:      palette.Default(),
		historyDepth: history.DefaultMaxDepth,
		logger:       log.WithModule("editor"),
		ready:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("workflow_id", workflow.ID)

	return s
}

// Workflow returns the workflow the session was created with.
func (s *Session) Workflow() models.Workflow {
	return s.workflow
}

// Mount starts loading the canvas engine in the background. Ready is closed once loading
// has finished, successfully or not.
func (s *Session) Mount(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unmounted {
		return ErrUnmounted
	}

	if s.mounted {
		return ErrAlreadyMounted
	}

	s.mounted = true

	ctx, s.cancel = context.WithCancel(ctx)

	go s.load(ctx)

	return nil
}

// Ready is closed when the engine load started by Mount has completed.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until the session is ready or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unmount tears the engine down. Operations afterwards return ErrUnmounted and an engine
// that finishes loading later is discarded.
func (s *Session) Unmount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unmounted {
		return nil
	}

	s.unmounted = true

	if s.cancel != nil {
		s.cancel()
	}

	if !s.mounted {
		close(s.ready)
	}

	if s.bridge == nil {
		return nil
	}

	err := s.bridge.Close()
	s.bridge = nil
	s.history = nil

	return err
}

func (s *Session) load(ctx context.Context) {
	engine, err := s.loader(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(s.ready)

	if s.unmounted {
		if engine != nil {
			_ = engine.Close()
		}

		s.logger.Debug("Discarding canvas engine loaded after unmount")

		return
	}

	s.initialized = true

	if err != nil {
		s.logger.Error("Failed to load canvas engine", "error", err)

		return
	}

	doc, err := graph.ParseFlowData(s.workflow.FlowData)
	if err != nil {
		s.logger.Error("Failed to parse workflow flow data, starting empty", "error", err)
	}

	opts := []bridge.Option{bridge.WithLogger(s.logger)}
	if s.newID != nil {
		opts = append(opts, bridge.WithIDGenerator(s.newID))
	}

	b := bridge.New(engine, opts...)

	if err := b.Load(doc); err != nil {
		s.logger.Warn("Workflow loaded with skipped items", "error", err)
	}

	s.history = history.New(history.WithMaxDepth(s.historyDepth))
	s.history.Initialize(b.Export())

	b.OnMutation(s.onMutation)
	b.OnTransient(s.onTransient)

	s.bridge = b

	s.logger.Debug("Editor mounted", "nodes", len(doc.Nodes), "edges", len(doc.Edges))
}

// do runs fn under the session lock once the canvas is usable, then delivers the host
// callbacks and observer events fn queued.
func (s *Session) do(fn func() error) error {
	s.mu.Lock()

	if err := s.usable(); err != nil {
		s.mu.Unlock()

		return err
	}

	err := fn()

	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, deliver := range pending {
		deliver()
	}

	return err
}

func (s *Session) usable() error {
	switch {
	case s.unmounted:
		return ErrUnmounted
	case !s.initialized:
		return ErrNotInitialized
	case s.bridge == nil:
		return ErrCanvasUnavailable
	default:
		return nil
	}
}

func (s *Session) enqueue(fn func()) {
	s.pending = append(s.pending, fn)
}

func (s *Session) observe(event Event) {
	for _, fn := range s.observers {
		s.enqueue(func() { fn(event) })
	}
}
