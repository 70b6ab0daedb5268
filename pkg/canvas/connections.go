package canvas

import (
	"maps"
	"slices"
)

// AddConnection wires an output port to an input port. Parallel wires between the same
// ports are allowed.
func (e *Editor) AddConnection(outputID, inputID int, outputPort, inputPort string) error {
	if e.closed {
		return ErrClosed
	}

	nodes := e.nodes()

	out, ok := nodes[outputID]
	if !ok {
		return ErrNodeNotFound
	}

	in, ok := nodes[inputID]
	if !ok {
		return ErrNodeNotFound
	}

	outPort, ok := out.Outputs[outputPort]
	if !ok {
		return ErrPortNotFound
	}

	inPort, ok := in.Inputs[inputPort]
	if !ok {
		return ErrPortNotFound
	}

	outPort.Connections = append(outPort.Connections, PortConnection{Node: inputID, Port: inputPort})
	inPort.Connections = append(inPort.Connections, PortConnection{Node: outputID, Port: outputPort})

	e.emit(Event{
		Kind:   EventConnectionCreated,
		NodeID: outputID,
		Connection: &Connection{
			OutputID:   outputID,
			InputID:    inputID,
			OutputPort: outputPort,
			InputPort:  inputPort,
		},
	})

	return nil
}

// RemoveConnection removes one wire matching conn.
func (e *Editor) RemoveConnection(conn Connection) error {
	if e.closed {
		return ErrClosed
	}

	nodes := e.nodes()

	out, ok := nodes[conn.OutputID]
	if !ok {
		return ErrConnectionNotFound
	}

	in, ok := nodes[conn.InputID]
	if !ok {
		return ErrConnectionNotFound
	}

	outPort, ok := out.Outputs[conn.OutputPort]
	if !ok {
		return ErrConnectionNotFound
	}

	inPort, ok := in.Inputs[conn.InputPort]
	if !ok {
		return ErrConnectionNotFound
	}

	outIdx := slices.Index(outPort.Connections, PortConnection{Node: conn.InputID, Port: conn.InputPort})
	inIdx := slices.Index(inPort.Connections, PortConnection{Node: conn.OutputID, Port: conn.OutputPort})

	if outIdx < 0 || inIdx < 0 {
		return ErrConnectionNotFound
	}

	outPort.Connections = slices.Delete(outPort.Connections, outIdx, outIdx+1)
	inPort.Connections = slices.Delete(inPort.Connections, inIdx, inIdx+1)

	removed := conn
	e.emit(Event{Kind: EventConnectionRemoved, NodeID: conn.OutputID, Connection: &removed})

	return nil
}

// Connections lists every wire in the active module, ordered by output node id, output
// port name and insertion order.
func (e *Editor) Connections() []Connection {
	if e.closed {
		return nil
	}

	nodes := e.nodes()
	conns := make([]Connection, 0)

	for _, id := range slices.Sorted(maps.Keys(nodes)) {
		conns = append(conns, outgoing(nodes[id])...)
	}

	return conns
}

// BeginConnection starts dragging a wire out of an output port.
func (e *Editor) BeginConnection(outputID int, outputPort string) error {
	if e.closed {
		return ErrClosed
	}

	if e.mode == ModeView {
		return ErrReadOnly
	}

	node, ok := e.nodes()[outputID]
	if !ok {
		return ErrNodeNotFound
	}

	if _, ok := node.Outputs[outputPort]; !ok {
		return ErrPortNotFound
	}

	e.pending = &pendingConnection{outputID: outputID, port: outputPort}
	e.emit(Event{Kind: EventConnectionStart, NodeID: outputID, Connection: &Connection{OutputID: outputID, OutputPort: outputPort}})

	return nil
}

// FinishConnection drops the dragged wire on an input port. A drop that cannot be
// wired cancels the gesture.
func (e *Editor) FinishConnection(inputID int, inputPort string) error {
	if e.closed {
		return ErrClosed
	}

	if e.pending == nil {
		return ErrNoPendingConnection
	}

	pending := *e.pending
	e.pending = nil

	e.emit(Event{Kind: EventConnectionEnd, NodeID: pending.outputID, Connection: &Connection{
		OutputID:   pending.outputID,
		InputID:    inputID,
		OutputPort: pending.port,
		InputPort:  inputPort,
	}})

	if e.mode == ModeView {
		e.emit(Event{Kind: EventConnectionCancel, NodeID: pending.outputID})

		return ErrReadOnly
	}

	err := e.AddConnection(pending.outputID, inputID, pending.port, inputPort)
	if err != nil {
		e.emit(Event{Kind: EventConnectionCancel, NodeID: pending.outputID})

		return err
	}

	return nil
}

// CancelConnection abandons the wire being dragged, if any.
func (e *Editor) CancelConnection() {
	if e.closed || e.pending == nil {
		return
	}

	outputID := e.pending.outputID
	e.pending = nil
	e.emit(Event{Kind: EventConnectionCancel, NodeID: outputID})
}

func outgoing(node *NodeInfo) []Connection {
	conns := make([]Connection, 0)

	for _, port := range slices.Sorted(maps.Keys(node.Outputs)) {
		for _, pc := range node.Outputs[port].Connections {
			conns = append(conns, Connection{
				OutputID:   node.ID,
				InputID:    pc.Node,
				OutputPort: port,
				InputPort:  pc.Port,
			})
		}
	}

	return conns
}

// connectionsOf lists the wires leaving and entering node.
func (e *Editor) connectionsOf(node *NodeInfo) []Connection {
	conns := outgoing(node)

	for _, port := range slices.Sorted(maps.Keys(node.Inputs)) {
		for _, pc := range node.Inputs[port].Connections {
			// Self-loops were already collected from the output side.
			if pc.Node == node.ID {
				continue
			}

			conns = append(conns, Connection{
				OutputID:   pc.Node,
				InputID:    node.ID,
				OutputPort: pc.Port,
				InputPort:  port,
			})
		}
	}

	return conns
}
