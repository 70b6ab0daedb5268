package editor

import (
	"github.com/dukex/flowedit/pkg/bridge"
	"github.com/dukex/flowedit/pkg/canvas"
)

// Selection is either Unselected (NodeID empty) or Selected(NodeID).
type Selection struct {
	NodeID string
}

// Selected reports whether a node is selected.
func (s Selection) Selected() bool {
	return s.NodeID != ""
}

// onTransient drives the selection state machine. It never touches history.
func (s *Session) onTransient(event bridge.Transient) {
	switch event.Kind {
	case canvas.EventNodeSelected:
		if s.selection.NodeID == event.NodeID {
			break
		}

		s.selection = Selection{NodeID: event.NodeID}

		if node, ok := s.bridge.Node(event.NodeID); ok {
			s.enqueue(func() { s.host.OnNodeClick(node) })
		}
	case canvas.EventNodeUnselected:
		if s.selection.NodeID == event.NodeID {
			s.selection = Selection{}
		}
	default:
	}

	s.observe(Event{Activity: ActivityTransient, Kinds: []canvas.EventKind{event.Kind}, NodeID: event.NodeID})
}

// reconcileSelection keeps the selection after a reload only if the node still exists, and
// re-applies it on the engine.
func (s *Session) reconcileSelection() {
	if !s.selection.Selected() {
		return
	}

	if _, ok := s.bridge.Node(s.selection.NodeID); !ok {
		s.selection = Selection{}

		return
	}

	if err := s.bridge.SelectNode(s.selection.NodeID); err != nil {
		s.logger.Warn("Failed to restore selection", "node_id", s.selection.NodeID, "error", err)
		s.selection = Selection{}
	}
}
