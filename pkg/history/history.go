// Package history keeps undo/redo snapshot stacks over graph documents.
package history

import (
	"time"

	"github.com/dukex/flowedit/pkg/graph"
)

// DefaultMaxDepth bounds the undo stack when no other depth is configured.
const DefaultMaxDepth = 50

// Snapshot is a frozen copy of a document. Its Document is never handed out directly;
// callers always receive clones.
type Snapshot struct {
	Document  graph.Document
	Timestamp time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxDepth bounds the number of undo steps kept. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(m *Manager) {
		if depth > 0 {
			m.maxDepth = depth
		}
	}
}

// WithClock overrides the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager holds the past and future snapshot stacks around the current document.
// It is not safe for concurrent use; an editor session serializes access to it.
type Manager struct {
	past     []Snapshot
	future   []Snapshot
	current  *Snapshot
	maxDepth int
	now      func() time.Time
}

// New creates an empty history manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		maxDepth: DefaultMaxDepth,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Initialize makes doc the current state and clears both stacks.
func (m *Manager) Initialize(doc graph.Document) {
	m.past = nil
	m.future = nil
	m.current = m.snapshot(doc)
}

// SaveState records doc as the new current state. The previous state moves onto the
// past stack and any redo branch is discarded.
func (m *Manager) SaveState(doc graph.Document) {
	if m.current != nil {
		m.past = append(m.past, *m.current)
		if overflow := len(m.past) - m.maxDepth; overflow > 0 {
			m.past = append([]Snapshot(nil), m.past[overflow:]...)
		}
	}

	m.current = m.snapshot(doc)
	m.future = nil
}

// Undo steps back one state and returns it. The boolean is false, and nothing changes,
// when there is nothing to undo.
func (m *Manager) Undo() (graph.Document, bool) {
	if len(m.past) == 0 {
		return graph.Document{}, false
	}

	if m.current != nil {
		m.future = append(m.future, *m.current)
	}

	previous := m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]
	m.current = &previous

	return previous.Document.Clone(), true
}

// Redo re-applies the most recently undone state and returns it. The boolean is false,
// and nothing changes, when there is nothing to redo.
func (m *Manager) Redo() (graph.Document, bool) {
	if len(m.future) == 0 {
		return graph.Document{}, false
	}

	if m.current != nil {
		m.past = append(m.past, *m.current)
	}

	next := m.future[len(m.future)-1]
	m.future = m.future[:len(m.future)-1]
	m.current = &next

	return next.Document.Clone(), true
}

// CanUndo reports whether Undo would change state.
func (m *Manager) CanUndo() bool {
	return len(m.past) > 0
}

// CanRedo reports whether Redo would change state.
func (m *Manager) CanRedo() bool {
	return len(m.future) > 0
}

// Current returns a copy of the current snapshot, if any.
func (m *Manager) Current() (Snapshot, bool) {
	if m.current == nil {
		return Snapshot{}, false
	}

	return Snapshot{Document: m.current.Document.Clone(), Timestamp: m.current.Timestamp}, true
}

// PastLen returns the number of undo steps available.
func (m *Manager) PastLen() int {
	return len(m.past)
}

// FutureLen returns the number of redo steps available.
func (m *Manager) FutureLen() int {
	return len(m.future)
}

func (m *Manager) snapshot(doc graph.Document) *Snapshot {
	return &Snapshot{Document: doc.Clone(), Timestamp: m.now()}
}
