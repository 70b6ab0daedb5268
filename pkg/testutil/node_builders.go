// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/models"
	"github.com/google/uuid"
)

// CreateTestNode creates a graph node with default values that can be overridden.
func CreateTestNode(overrides ...func(*graph.Node)) graph.Node {
	node := graph.Node{
		ID:       uuid.New().String(),
		Type:     graph.NodeTypeAgent,
		Position: graph.Position{X: 100, Y: 200},
		Data: map[string]any{
			graph.DataLabel:    "Agent",
			graph.DataType:     string(graph.NodeTypeAgent),
			graph.DataCategory: "General",
		},
	}

	for _, override := range overrides {
		override(&node)
	}

	return node
}

// WithID sets the node id.
func WithID(id string) func(*graph.Node) {
	return func(n *graph.Node) {
		n.ID = id
	}
}

// WithType sets the node type and the matching data type.
func WithType(nodeType graph.NodeType) func(*graph.Node) {
	return func(n *graph.Node) {
		n.Type = nodeType
		n.Data[graph.DataType] = string(nodeType)
	}
}

// WithLabel sets the node label.
func WithLabel(label string) func(*graph.Node) {
	return func(n *graph.Node) {
		n.Data[graph.DataLabel] = label
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*graph.Node) {
	return func(n *graph.Node) {
		n.Position = graph.Position{X: x, Y: y}
	}
}

// WithData merges attributes into the node data.
func WithData(data map[string]any) func(*graph.Node) {
	return func(n *graph.Node) {
		for k, v := range data {
			n.Data[k] = v
		}
	}
}

// CreateTestDocument builds a document from nodes, connecting consecutive pairs of ids
// given in edges.
func CreateTestDocument(nodes []graph.Node, edges ...[2]string) graph.Document {
	doc := graph.Document{Nodes: nodes, Edges: []graph.Edge{}}
	if doc.Nodes == nil {
		doc.Nodes = []graph.Node{}
	}

	for _, edge := range edges {
		doc.Edges = append(doc.Edges, graph.Edge{Source: edge[0], Target: edge[1]})
	}

	return doc
}

// CreateTestChain builds a document of Agent nodes with the given ids wired in a chain.
func CreateTestChain(ids ...string) graph.Document {
	nodes := make([]graph.Node, 0, len(ids))
	edges := make([][2]string, 0, len(ids))

	for i, id := range ids {
		nodes = append(nodes, CreateTestNode(WithID(id), WithLabel(id), WithPosition(float64(i*200), 100)))

		if i > 0 {
			edges = append(edges, [2]string{ids[i-1], id})
		}
	}

	return CreateTestDocument(nodes, edges...)
}

// CreateTestWorkflow creates a workflow record whose flow data is doc.
func CreateTestWorkflow(doc graph.Document, overrides ...func(*models.Workflow)) models.Workflow {
	flowData, err := graph.Marshal(doc)
	if err != nil {
		panic(err)
	}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	workflow := models.Workflow{
		ID:        uuid.New().String(),
		Name:      "Test Workflow",
		Type:      models.WorkflowTypeAgentflow,
		CreatedAt: now,
		UpdatedAt: now,
	}
	workflow.ApplyFlowData(flowData, doc)

	for _, override := range overrides {
		override(&workflow)
	}

	return workflow
}

// WithWorkflowID sets the workflow id.
func WithWorkflowID(id string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.ID = id
	}
}

// WithFlowData overrides the raw flow data.
func WithFlowData(flowData string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.FlowData = flowData
	}
}

// WithWorkflowName sets the workflow name.
func WithWorkflowName(name string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Name = name
	}
}
