// Package graph defines the canonical node/edge document edited on the workflow canvas.
package graph

// NodeType identifies the kind of workflow step a node represents.
type NodeType string

const (
	NodeTypeStart     NodeType = "Start"
	NodeTypeAgent     NodeType = "Agent"
	NodeTypeCondition NodeType = "Condition"
	NodeTypeLLM       NodeType = "LLM"
	NodeTypeLoop      NodeType = "Loop"
	NodeTypeTool      NodeType = "Tool"
	NodeTypeDocument  NodeType = "Document"
	NodeTypeMemory    NodeType = "Memory"
	NodeTypeAPI       NodeType = "API"
)

// NodeTypes lists the built-in node types in palette order.
var NodeTypes = []NodeType{
	NodeTypeStart,
	NodeTypeAgent,
	NodeTypeCondition,
	NodeTypeLLM,
	NodeTypeLoop,
	NodeTypeTool,
	NodeTypeDocument,
	NodeTypeMemory,
	NodeTypeAPI,
}

// IsKnown reports whether t is one of the built-in node types.
func (t NodeType) IsKnown() bool {
	for _, known := range NodeTypes {
		if known == t {
			return true
		}
	}

	return false
}

// Well-known keys of Node.Data.
const (
	DataLabel    = "label"
	DataType     = "type"
	DataCategory = "category"
)

// Position is an unconstrained 2D canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Offset returns p moved by (dx, dy).
func (p Position) Offset(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Node is a workflow step placed on the canvas.
type Node struct {
	ID       string         `json:"id"       validate:"required"`
	Type     NodeType       `json:"type"     validate:"required"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data"`
}

// Label returns the node's display label, or an empty string.
func (n Node) Label() string {
	label, _ := n.Data[DataLabel].(string)

	return label
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Data = CloneData(n.Data)

	return n
}

// Edge is a directed connection from Source's default output to Target's default input.
type Edge struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// Document is the canonical representation of a workflow graph.
type Document struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Empty returns a document with no nodes and no edges.
func Empty() Document {
	return Document{Nodes: []Node{}, Edges: []Edge{}}
}

// Clone returns a deep copy of the document. The copy shares no memory with d.
func (d Document) Clone() Document {
	out := Document{
		Nodes: make([]Node, len(d.Nodes)),
		Edges: make([]Edge, len(d.Edges)),
	}

	for i, node := range d.Nodes {
		out.Nodes[i] = node.Clone()
	}

	copy(out.Edges, d.Edges)

	return out
}

// Node returns the node with the given id.
func (d Document) Node(id string) (Node, bool) {
	for _, node := range d.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return Node{}, false
}

// EdgesOf returns every edge that has id as its source or target.
func (d Document) EdgesOf(id string) []Edge {
	edges := make([]Edge, 0)

	for _, edge := range d.Edges {
		if edge.Source == id || edge.Target == id {
			edges = append(edges, edge)
		}
	}

	return edges
}

// CloneData deep-copies an attribute bag, including nested maps and slices.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return CloneData(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}

		return out
	case []string:
		return append([]string(nil), value...)
	default:
		return value
	}
}
