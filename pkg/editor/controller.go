package editor

import (
	"fmt"
	"strings"

	"github.com/dukex/flowedit/pkg/bridge"
	"github.com/dukex/flowedit/pkg/canvas"
	"github.com/dukex/flowedit/pkg/graph"
)

const duplicateSuffix = " (cópia)"

// DuplicateOffset is how far a duplicate is placed from its original on each axis.
const DuplicateOffset = 50

// DefaultNodePosition is where the canvas context menu's Add Node places new nodes.
var DefaultNodePosition = graph.Position{X: 100, Y: 100}

// DropEvent is a palette item dropped on the canvas at client coordinates.
type DropEvent struct {
	NodeType string  `json:"node_type"`
	ClientX  float64 `json:"client_x"`
	ClientY  float64 `json:"client_y"`
}

// Drop creates a node of the dropped type at the drop point translated into canvas
// coordinates, with the palette's default data.
func (s *Session) Drop(event DropEvent) (graph.Node, error) {
	nodeType := strings.TrimSpace(event.NodeType)
	if nodeType == "" {
		return graph.Node{}, ErrEmptyDropPayload
	}

	var node graph.Node

	err := s.do(func() error {
		var err error

		position := s.bridge.ToCanvas(event.ClientX, event.ClientY)
		node, err = s.addNode(graph.NodeType(nodeType), position)

		return err
	})

	return node, err
}

// AddNodeAtDefault creates a node of nodeType at DefaultNodePosition.
func (s *Session) AddNodeAtDefault(nodeType graph.NodeType) (graph.Node, error) {
	var node graph.Node

	err := s.do(func() error {
		var err error

		node, err = s.addNode(nodeType, DefaultNodePosition)

		return err
	})

	return node, err
}

func (s *Session) addNode(nodeType graph.NodeType, position graph.Position) (graph.Node, error) {
	data, err := s.palette.DefaultData(nodeType)
	if err != nil {
		return graph.Node{}, err
	}

	node, err := s.bridge.AddNode(nodeType, position.X, position.Y, data)
	if err != nil {
		s.logger.Error("Failed to add node", "type", nodeType, "error", err)

		return graph.Node{}, err
	}

	return node, nil
}

// DeleteNode removes a node together with every edge referencing it.
func (s *Session) DeleteNode(id string) error {
	return s.do(func() error {
		return s.deleteNode(id)
	})
}

func (s *Session) deleteNode(id string) error {
	if err := s.bridge.RemoveNode(id); err != nil {
		s.logger.Error("Failed to delete node", "node_id", id, "error", err)

		return err
	}

	if s.selection.NodeID == id {
		s.selection = Selection{}
	}

	return nil
}

// DuplicateNode copies a node under a fresh id, offset by DuplicateOffset on both axes,
// with " (cópia)" appended to its label. Every other data field is copied unchanged.
func (s *Session) DuplicateNode(id string) (graph.Node, error) {
	var duplicate graph.Node

	err := s.do(func() error {
		original, ok := s.bridge.Node(id)
		if !ok {
			return &bridge.NodeError{Op: "DuplicateNode", NodeID: id, Err: ErrNodeNotFound}
		}

		label := original.Label()
		if label == "" {
			label = string(original.Type)
		}

		data := graph.CloneData(original.Data)
		if data == nil {
			data = map[string]any{}
		}

		data[graph.DataLabel] = label + duplicateSuffix

		position := original.Position.Offset(DuplicateOffset, DuplicateOffset)

		var err error

		duplicate, err = s.bridge.AddNode(original.Type, position.X, position.Y, data)
		if err != nil {
			return fmt.Errorf("duplicate node %s: %w", id, err)
		}

		return nil
	})

	return duplicate, err
}

// EditNode hands the node to the host's edit dialog. The document is not changed.
func (s *Session) EditNode(id string) error {
	return s.do(func() error {
		node, ok := s.bridge.Node(id)
		if !ok {
			return &bridge.NodeError{Op: "EditNode", NodeID: id, Err: ErrNodeNotFound}
		}

		s.enqueue(func() { s.host.OnEditNode(node) })

		return nil
	})
}

// NodeInfo returns a read-only copy of a node.
func (s *Session) NodeInfo(id string) (graph.Node, error) {
	var node graph.Node

	err := s.do(func() error {
		var ok bool

		node, ok = s.bridge.Node(id)
		if !ok {
			return &bridge.NodeError{Op: "NodeInfo", NodeID: id, Err: ErrNodeNotFound}
		}

		return nil
	})

	return node, err
}

// UpdateNodeData applies the result of the host's edit dialog to a node.
func (s *Session) UpdateNodeData(id string, data map[string]any) error {
	return s.do(func() error {
		return s.bridge.UpdateNodeData(id, data)
	})
}

// MoveNode places a node at canvas position (x, y). Each call is its own history step.
func (s *Session) MoveNode(id string, x, y float64) error {
	return s.do(func() error {
		return s.bridge.MoveNode(id, x, y)
	})
}

// Connect wires source's output to target's input.
func (s *Session) Connect(source, target string) error {
	return s.do(func() error {
		return s.bridge.Connect(source, target)
	})
}

// Disconnect removes one edge from source to target.
func (s *Session) Disconnect(source, target string) error {
	return s.do(func() error {
		return s.bridge.Disconnect(source, target)
	})
}

// BeginConnection starts dragging a wire out of source, as pressing on its output port would.
func (s *Session) BeginConnection(source string) error {
	return s.do(func() error {
		return s.bridge.BeginConnection(source)
	})
}

// FinishConnection drops the dragged wire on target, creating the edge.
func (s *Session) FinishConnection(target string) error {
	return s.do(func() error {
		return s.bridge.FinishConnection(target)
	})
}

// CancelConnection abandons the dragged wire, as releasing it over empty canvas would.
func (s *Session) CancelConnection() error {
	return s.do(func() error {
		s.bridge.CancelConnection()

		return nil
	})
}

// SetViewport records the canvas pan and zoom used to place dropped nodes.
func (s *Session) SetViewport(viewport canvas.Viewport) error {
	return s.do(func() error {
		return s.bridge.SetViewport(viewport)
	})
}

// Viewport returns the canvas pan and zoom.
func (s *Session) Viewport() (canvas.Viewport, error) {
	var viewport canvas.Viewport

	err := s.do(func() error {
		viewport = s.bridge.Viewport()

		return nil
	})

	return viewport, err
}

// ClearConnections removes every edge and keeps every node.
func (s *Session) ClearConnections() error {
	return s.do(func() error {
		return s.bridge.ClearConnections()
	})
}

// SelectNode selects a node, as a click on it would.
func (s *Session) SelectNode(id string) error {
	return s.do(func() error {
		return s.bridge.SelectNode(id)
	})
}

// ClearSelection unselects the selected node, as a click on empty canvas would.
func (s *Session) ClearSelection() error {
	return s.do(func() error {
		return s.bridge.UnselectNode()
	})
}

// SetConnectionMode switches between edit and view mode.
func (s *Session) SetConnectionMode(mode bridge.ConnectionMode) error {
	return s.do(func() error {
		return s.bridge.SetConnectionMode(mode)
	})
}

// ConnectionMode returns the current connection mode.
func (s *Session) ConnectionMode() (bridge.ConnectionMode, error) {
	var mode bridge.ConnectionMode

	err := s.do(func() error {
		mode = s.bridge.ConnectionMode()

		return nil
	})

	return mode, err
}

// Undo restores the previous snapshot. It reports false when there is nothing to undo.
// The reload does not record history or notify the host of a change.
func (s *Session) Undo() (bool, error) {
	return s.replay(ActivityUndo)
}

// Redo re-applies the snapshot undone last. It reports false when there is nothing to redo.
func (s *Session) Redo() (bool, error) {
	return s.replay(ActivityRedo)
}

func (s *Session) replay(activity Activity) (bool, error) {
	applied := false

	err := s.do(func() error {
		var (
			doc graph.Document
			ok  bool
		)

		if activity == ActivityUndo {
			doc, ok = s.history.Undo()
		} else {
			doc, ok = s.history.Redo()
		}

		if !ok {
			return nil
		}

		if err := s.bridge.Load(doc); err != nil {
			s.logger.Warn("History snapshot reloaded with skipped items", "activity", activity, "error", err)
		}

		s.reconcileSelection()
		s.observe(Event{Activity: activity, Document: doc})

		applied = true

		return nil
	})

	return applied, err
}

// CanUndo reports whether Undo would change the document.
func (s *Session) CanUndo() bool {
	var can bool

	_ = s.do(func() error {
		can = s.history.CanUndo()

		return nil
	})

	return can
}

// CanRedo reports whether Redo would change the document.
func (s *Session) CanRedo() bool {
	var can bool

	_ = s.do(func() error {
		can = s.history.CanRedo()

		return nil
	})

	return can
}

// Save asks the host to persist the workflow.
func (s *Session) Save() error {
	return s.do(func() error {
		s.enqueue(s.host.OnSave)

		return nil
	})
}

// Preview asks the host to show a preview of the workflow.
func (s *Session) Preview() error {
	return s.do(func() error {
		s.enqueue(s.host.OnPreview)

		return nil
	})
}

// Document exports the live document.
func (s *Session) Document() (graph.Document, error) {
	var doc graph.Document

	err := s.do(func() error {
		doc = s.bridge.Export()

		return nil
	})

	return doc, err
}

// FlowData exports the live document as canonical JSON.
func (s *Session) FlowData() (string, error) {
	doc, err := s.Document()
	if err != nil {
		return "", err
	}

	return graph.Marshal(doc)
}

// Selection returns the current selection.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selection
}

// HistoryDepth returns the number of undo and redo steps available.
func (s *Session) HistoryDepth() (past, future int) {
	_ = s.do(func() error {
		past, future = s.history.PastLen(), s.history.FutureLen()

		return nil
	})

	return past, future
}
