package bridge

import (
	"errors"

	"github.com/dukex/flowedit/pkg/canvas"
	"github.com/dukex/flowedit/pkg/graph"
)

// command runs fn against the default module with structural events coalesced: however
// many engine events fn causes, at most one Mutation is emitted, after fn returns.
func (b *Bridge) command(fn func() error) error {
	if b.batching {
		return fn()
	}

	b.home()

	b.batching = true
	b.batch = nil

	err := fn()

	events := b.batch
	b.batching = false
	b.batch = nil

	if len(events) > 0 {
		b.emitMutation(Mutation{Events: events})
	}

	return err
}

// AddNode places a new node of the given type at canvas position (x, y) and returns it
// with its freshly generated id.
func (b *Bridge) AddNode(nodeType graph.NodeType, x, y float64, data map[string]any) (graph.Node, error) {
	node := graph.Node{
		ID:       b.newID(),
		Type:     nodeType,
		Position: graph.Position{X: x, Y: y},
		Data:     graph.CloneData(data),
	}

	if node.Data == nil {
		node.Data = map[string]any{}
	}

	err := b.command(func() error {
		_, err := b.addNode(node)

		return err
	})
	if err != nil {
		return graph.Node{}, &NodeError{Op: "AddNode", NodeID: node.ID, Err: err}
	}

	return node, nil
}

// RemoveNode deletes a node and every edge referencing it as one mutation.
func (b *Bridge) RemoveNode(id string) error {
	internal, ok := b.internalID(id)
	if !ok {
		return &NodeError{Op: "RemoveNode", NodeID: id, Err: ErrNodeNotFound}
	}

	err := b.command(func() error {
		return b.engine.RemoveNode(internal)
	})
	if err != nil {
		return &NodeError{Op: "RemoveNode", NodeID: id, Err: err}
	}

	return nil
}

// MoveNode sets a node's canvas position.
func (b *Bridge) MoveNode(id string, x, y float64) error {
	internal, ok := b.internalID(id)
	if !ok {
		return &NodeError{Op: "MoveNode", NodeID: id, Err: ErrNodeNotFound}
	}

	err := b.command(func() error {
		return b.engine.MoveNode(internal, x, y)
	})
	if err != nil {
		return &NodeError{Op: "MoveNode", NodeID: id, Err: err}
	}

	return nil
}

// UpdateNodeData replaces a node's opaque data, keeping its id, type and position.
func (b *Bridge) UpdateNodeData(id string, data map[string]any) error {
	internal, ok := b.internalID(id)
	if !ok {
		return &NodeError{Op: "UpdateNodeData", NodeID: id, Err: ErrNodeNotFound}
	}

	info, _ := b.engine.Node(internal)
	node := nodeFromInfo(info)
	node.Data = data

	err := b.command(func() error {
		return b.engine.UpdateNodeData(internal, payloadOf(node))
	})
	if err != nil {
		return &NodeError{Op: "UpdateNodeData", NodeID: id, Err: err}
	}

	return nil
}

// Connect adds an edge between the default ports of source and target.
func (b *Bridge) Connect(source, target string) error {
	if b.ConnectionMode() == ConnectionModeView {
		return ErrConnectionsLocked
	}

	out, in, err := b.endpoints("Connect", source, target)
	if err != nil {
		return err
	}

	return b.command(func() error {
		return b.engine.AddConnection(out, in, DefaultOutput, DefaultInput)
	})
}

// Disconnect removes one edge between source and target.
func (b *Bridge) Disconnect(source, target string) error {
	out, in, err := b.endpoints("Disconnect", source, target)
	if err != nil {
		return err
	}

	return b.command(func() error {
		return b.engine.RemoveConnection(canvas.Connection{
			OutputID:   out,
			InputID:    in,
			OutputPort: DefaultOutput,
			InputPort:  DefaultInput,
		})
	})
}

// ClearConnections removes every edge and keeps every node, as one mutation.
func (b *Bridge) ClearConnections() error {
	return b.command(func() error {
		for _, conn := range b.engine.Connections() {
			if err := b.engine.RemoveConnection(conn); err != nil {
				return err
			}
		}

		return nil
	})
}

// SelectNode selects a node on the canvas.
func (b *Bridge) SelectNode(id string) error {
	internal, ok := b.internalID(id)
	if !ok {
		return &NodeError{Op: "SelectNode", NodeID: id, Err: ErrNodeNotFound}
	}

	return b.engine.SelectNode(internal)
}

// UnselectNode clears the canvas selection.
func (b *Bridge) UnselectNode() error {
	b.home()

	return b.engine.UnselectNode()
}

// BeginConnection starts dragging a wire out of source's default output.
func (b *Bridge) BeginConnection(source string) error {
	if b.ConnectionMode() == ConnectionModeView {
		return ErrConnectionsLocked
	}

	out, ok := b.internalID(source)
	if !ok {
		return &NodeError{Op: "BeginConnection", NodeID: source, Err: ErrNodeNotFound}
	}

	return b.engine.BeginConnection(out, DefaultOutput)
}

// FinishConnection drops the dragged wire on target's default input. The new edge is one
// mutation. An unknown target cancels the gesture.
func (b *Bridge) FinishConnection(target string) error {
	in, ok := b.internalID(target)
	if !ok {
		b.engine.CancelConnection()

		return &NodeError{Op: "FinishConnection", NodeID: target, Err: ErrNodeNotFound}
	}

	return b.command(func() error {
		err := b.engine.FinishConnection(in, DefaultInput)
		if errors.Is(err, canvas.ErrNoPendingConnection) {
			return ErrNoPendingConnection
		}

		return err
	})
}

// CancelConnection abandons the wire being dragged, if any.
func (b *Bridge) CancelConnection() {
	b.home()
	b.engine.CancelConnection()
}

func (b *Bridge) endpoints(op, source, target string) (int, int, error) {
	out, ok := b.internalID(source)
	if !ok {
		return 0, 0, &NodeError{Op: op, NodeID: source, Err: ErrNodeNotFound}
	}

	in, ok := b.internalID(target)
	if !ok {
		return 0, 0, &NodeError{Op: op, NodeID: target, Err: ErrNodeNotFound}
	}

	return out, in, nil
}
