// Package canvas is a headless node-graph engine. It keeps its own internal graph
// (integer node ids, named ports, per-module node tables) and reports every change
// through synchronous events, the way a browser flow-chart library would.
//
// An Editor is not safe for concurrent use. Event handlers run on the calling goroutine,
// in emission order, and may call back into the Editor.
package canvas

import (
	"context"
	"slices"
)

// DefaultModule is the module every editor starts in.
const DefaultModule = "Home"

// Mode controls whether pointer gestures may create connections.
type Mode string

const (
	ModeEdit Mode = "edit"
	ModeView Mode = "view"
)

// EventKind names an engine event.
type EventKind string

const (
	EventNodeCreated       EventKind = "nodeCreated"
	EventNodeRemoved       EventKind = "nodeRemoved"
	EventNodeMoved         EventKind = "nodeMoved"
	EventNodeDataChanged   EventKind = "nodeDataChanged"
	EventNodeSelected      EventKind = "nodeSelected"
	EventNodeUnselected    EventKind = "nodeUnselected"
	EventConnectionCreated EventKind = "connectionCreated"
	EventConnectionRemoved EventKind = "connectionRemoved"
	EventConnectionStart   EventKind = "connectionStart"
	EventConnectionEnd     EventKind = "connectionEnd"
	EventConnectionCancel  EventKind = "connectionCancel"
	EventModuleChanged     EventKind = "moduleChanged"
)

// Connection identifies one wire between an output port and an input port.
type Connection struct {
	OutputID   int
	InputID    int
	OutputPort string
	InputPort  string
}

// Event is delivered to handlers registered with On.
type Event struct {
	Kind       EventKind
	NodeID     int
	Connection *Connection
	Module     string
	X, Y       float64
}

// Handler receives engine events.
type Handler func(Event)

type pendingConnection struct {
	outputID int
	port     string
}

type handlerEntry struct {
	id int
	fn Handler
}

// Editor is one engine instance bound to one canvas.
type Editor struct {
	modules  map[string]map[int]*NodeInfo
	module   string
	nextID   int
	selected int
	pending  *pendingConnection
	mode     Mode
	viewport Viewport
	handlers map[EventKind][]handlerEntry
	handlerN int
	closed   bool
}

// New creates an engine in edit mode with an empty default module and an identity viewport.
func New() *Editor {
	e := &Editor{
		modules:  make(map[string]map[int]*NodeInfo),
		module:   DefaultModule,
		nextID:   1,
		mode:     ModeEdit,
		viewport: Viewport{Zoom: 1},
		handlers: make(map[EventKind][]handlerEntry),
	}
	_ = e.AddModule(DefaultModule)

	return e
}

// Open creates an engine, honoring ctx cancellation. It is the default loader used when
// an editor is mounted.
func Open(ctx context.Context) (*Editor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return New(), nil
}

// On registers handler for events of the given kind and returns a function that removes it.
func (e *Editor) On(kind EventKind, handler Handler) func() {
	if e.closed {
		return func() {}
	}

	e.handlerN++
	id := e.handlerN
	e.handlers[kind] = append(e.handlers[kind], handlerEntry{id: id, fn: handler})

	return func() {
		e.handlers[kind] = slices.DeleteFunc(e.handlers[kind], func(h handlerEntry) bool {
			return h.id == id
		})
	}
}

// Close tears the engine down. Every later call fails with ErrClosed.
func (e *Editor) Close() error {
	if e.closed {
		return ErrClosed
	}

	e.closed = true
	e.handlers = nil
	e.modules = nil
	e.pending = nil
	e.selected = 0

	return nil
}

// Closed reports whether Close has been called.
func (e *Editor) Closed() bool {
	return e.closed
}

// SetMode switches between edit and view mode.
func (e *Editor) SetMode(mode Mode) error {
	if e.closed {
		return ErrClosed
	}

	e.mode = mode
	if mode == ModeView {
		e.pending = nil
	}

	return nil
}

// Mode returns the current editor mode.
func (e *Editor) Mode() Mode {
	return e.mode
}

// Clear drops every module and node and returns to an empty default module. It emits
// no events.
func (e *Editor) Clear() error {
	if e.closed {
		return ErrClosed
	}

	e.modules = make(map[string]map[int]*NodeInfo)
	if err := e.AddModule(DefaultModule); err != nil {
		return err
	}

	e.module = DefaultModule
	e.selected = 0
	e.pending = nil

	return nil
}

// AddModule creates an empty module.
func (e *Editor) AddModule(name string) error {
	if e.closed {
		return ErrClosed
	}

	if _, ok := e.modules[name]; ok {
		return ErrModuleExists
	}

	e.modules[name] = map[int]*NodeInfo{}

	return nil
}

// ChangeModule activates another module.
func (e *Editor) ChangeModule(name string) error {
	if e.closed {
		return ErrClosed
	}

	if _, ok := e.modules[name]; !ok {
		return ErrModuleNotFound
	}

	e.module = name
	e.selected = 0
	e.pending = nil
	e.emit(Event{Kind: EventModuleChanged, Module: name})

	return nil
}

// Module returns the active module name.
func (e *Editor) Module() string {
	return e.module
}

func (e *Editor) emit(event Event) {
	if event.Module == "" {
		event.Module = e.module
	}

	// Handlers may unsubscribe while running; iterate over a copy.
	for _, h := range slices.Clone(e.handlers[event.Kind]) {
		h.fn(event)
	}
}

func (e *Editor) nodes() map[int]*NodeInfo {
	return e.modules[e.module]
}
