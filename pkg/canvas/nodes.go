package canvas

import (
	"maps"
	"slices"
	"strconv"
)

// PortConnection is one end of a wire as seen from the port holding it.
type PortConnection struct {
	Node int    `json:"node"`
	Port string `json:"port"`
}

// Port holds the wires attached to one named input or output.
type Port struct {
	Connections []PortConnection `json:"connections"`
}

// NodeInfo is the engine's internal record of a node.
type NodeInfo struct {
	ID      int              `json:"id"`
	Name    string           `json:"name"`
	Class   string           `json:"class"`
	Data    map[string]any   `json:"data"`
	Inputs  map[string]*Port `json:"inputs"`
	Outputs map[string]*Port `json:"outputs"`
	PosX    float64          `json:"pos_x"`
	PosY    float64          `json:"pos_y"`
}

// InputName returns the name of the n-th (1-based) input port.
func InputName(n int) string {
	return "input_" + strconv.Itoa(n)
}

// OutputName returns the name of the n-th (1-based) output port.
func OutputName(n int) string {
	return "output_" + strconv.Itoa(n)
}

// AddNode places a node with the given number of input and output ports and returns
// the id the engine assigned to it.
func (e *Editor) AddNode(name string, inputs, outputs int, x, y float64, class string, data map[string]any) (int, error) {
	if e.closed {
		return 0, ErrClosed
	}

	if inputs < 0 || outputs < 0 {
		return 0, ErrInvalidPorts
	}

	node := &NodeInfo{
		ID:      e.nextID,
		Name:    name,
		Class:   class,
		Data:    cloneMap(data),
		Inputs:  make(map[string]*Port, inputs),
		Outputs: make(map[string]*Port, outputs),
		PosX:    x,
		PosY:    y,
	}

	if node.Data == nil {
		node.Data = map[string]any{}
	}

	for i := 1; i <= inputs; i++ {
		node.Inputs[InputName(i)] = &Port{Connections: []PortConnection{}}
	}

	for i := 1; i <= outputs; i++ {
		node.Outputs[OutputName(i)] = &Port{Connections: []PortConnection{}}
	}

	e.nextID++
	e.nodes()[node.ID] = node
	e.emit(Event{Kind: EventNodeCreated, NodeID: node.ID, X: x, Y: y})

	return node.ID, nil
}

// RemoveNode deletes a node together with every wire attached to it. Each wire removal
// is reported before the node removal itself.
func (e *Editor) RemoveNode(id int) error {
	if e.closed {
		return ErrClosed
	}

	node, ok := e.nodes()[id]
	if !ok {
		return ErrNodeNotFound
	}

	for _, conn := range e.connectionsOf(node) {
		if err := e.RemoveConnection(conn); err != nil {
			return err
		}
	}

	if e.selected == id {
		e.selected = 0
		e.emit(Event{Kind: EventNodeUnselected, NodeID: id})
	}

	if e.pending != nil && e.pending.outputID == id {
		e.pending = nil
	}

	delete(e.nodes(), id)
	e.emit(Event{Kind: EventNodeRemoved, NodeID: id})

	return nil
}

// MoveNode sets a node's position, as at the end of a drag.
func (e *Editor) MoveNode(id int, x, y float64) error {
	if e.closed {
		return ErrClosed
	}

	node, ok := e.nodes()[id]
	if !ok {
		return ErrNodeNotFound
	}

	node.PosX = x
	node.PosY = y
	e.emit(Event{Kind: EventNodeMoved, NodeID: id, X: x, Y: y})

	return nil
}

// UpdateNodeData replaces a node's data payload.
func (e *Editor) UpdateNodeData(id int, data map[string]any) error {
	if e.closed {
		return ErrClosed
	}

	node, ok := e.nodes()[id]
	if !ok {
		return ErrNodeNotFound
	}

	node.Data = cloneMap(data)
	if node.Data == nil {
		node.Data = map[string]any{}
	}

	e.emit(Event{Kind: EventNodeDataChanged, NodeID: id})

	return nil
}

// SelectNode marks a node as selected, unselecting any previous selection first.
func (e *Editor) SelectNode(id int) error {
	if e.closed {
		return ErrClosed
	}

	if _, ok := e.nodes()[id]; !ok {
		return ErrNodeNotFound
	}

	if e.selected != 0 && e.selected != id {
		previous := e.selected
		e.selected = 0
		e.emit(Event{Kind: EventNodeUnselected, NodeID: previous})
	}

	e.selected = id
	e.emit(Event{Kind: EventNodeSelected, NodeID: id})

	return nil
}

// UnselectNode clears the selection, as when clicking empty canvas.
func (e *Editor) UnselectNode() error {
	if e.closed {
		return ErrClosed
	}

	if e.selected == 0 {
		return nil
	}

	previous := e.selected
	e.selected = 0
	e.emit(Event{Kind: EventNodeUnselected, NodeID: previous})

	return nil
}

// Selected returns the selected node id.
func (e *Editor) Selected() (int, bool) {
	return e.selected, e.selected != 0
}

// Node returns a copy of the node with the given id in the active module.
func (e *Editor) Node(id int) (NodeInfo, bool) {
	if e.closed {
		return NodeInfo{}, false
	}

	node, ok := e.nodes()[id]
	if !ok {
		return NodeInfo{}, false
	}

	return node.clone(), true
}

// Nodes returns copies of every node in the active module, ordered by id.
func (e *Editor) Nodes() []NodeInfo {
	if e.closed {
		return nil
	}

	nodes := e.nodes()
	out := make([]NodeInfo, 0, len(nodes))

	for _, id := range slices.Sorted(maps.Keys(nodes)) {
		out = append(out, nodes[id].clone())
	}

	return out
}

func (n *NodeInfo) clone() NodeInfo {
	out := *n
	out.Data = cloneMap(n.Data)
	out.Inputs = clonePorts(n.Inputs)
	out.Outputs = clonePorts(n.Outputs)

	return out
}

func clonePorts(ports map[string]*Port) map[string]*Port {
	out := make(map[string]*Port, len(ports))
	for name, port := range ports {
		out[name] = &Port{Connections: slices.Clone(port.Connections)}
	}

	return out
}

func cloneMap(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneAny(v)
	}

	return out
}

func cloneAny(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return cloneMap(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneAny(item)
		}

		return out
	default:
		return value
	}
}
