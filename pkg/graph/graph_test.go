package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument() Document {
	return Document{
		Nodes: []Node{
			{ID: "a", Type: NodeTypeStart, Position: Position{X: 10, Y: 10}, Data: map[string]any{"label": "Start"}},
			{ID: "b", Type: NodeTypeAgent, Position: Position{X: 200, Y: 10}, Data: map[string]any{
				"label":  "Agent",
				"config": map[string]any{"model": "gpt-4o", "tools": []any{"search"}},
			}},
			{ID: "c", Type: NodeTypeTool, Position: Position{X: 400, Y: 10}, Data: map[string]any{"label": "Tool"}},
		},
		Edges: []Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}},
	}
}

func TestValidate_ValidDocument(t *testing.T) {
	assert.NoError(t, Validate(testDocument()))
	assert.NoError(t, Validate(Empty()))
}

func TestValidate_DanglingEdge(t *testing.T) {
	doc := testDocument()
	doc.Edges = append(doc.Edges, Edge{Source: "c", Target: "missing"})

	err := Validate(doc)
	require.Error(t, err)
	assert.True(t, IsDanglingEdge(err))
	assert.False(t, IsDuplicateID(err))

	var dangling *DanglingEdgeError
	require.ErrorAs(t, err, &dangling)
	assert.Equal(t, "missing", dangling.Missing)
}

func TestValidate_DuplicateID(t *testing.T) {
	doc := testDocument()
	doc.Nodes = append(doc.Nodes, Node{ID: "a", Type: NodeTypeLLM})

	err := Validate(doc)
	require.Error(t, err)
	assert.True(t, IsDuplicateID(err))

	var duplicate *DuplicateIDError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, "a", duplicate.ID)
}

func TestValidate_MissingNodeFields(t *testing.T) {
	doc := Document{Nodes: []Node{{ID: "", Type: NodeTypeAgent}}}

	err := Validate(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidNode))
}

func TestDocument_CloneIsDeep(t *testing.T) {
	doc := testDocument()
	clone := doc.Clone()

	clone.Nodes[1].Data["label"] = "Changed"
	clone.Nodes[1].Data["config"].(map[string]any)["model"] = "other"
	clone.Nodes[1].Data["config"].(map[string]any)["tools"].([]any)[0] = "calc"
	clone.Nodes[0].Position.X = 999
	clone.Edges[0].Target = "c"

	assert.Equal(t, testDocument(), doc)
}

func TestDocument_EdgesOf(t *testing.T) {
	doc := testDocument()

	assert.Equal(t, []Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}}, doc.EdgesOf("b"))
	assert.Empty(t, doc.EdgesOf("missing"))
}

func TestNodeType_IsKnown(t *testing.T) {
	assert.True(t, NodeTypeMemory.IsKnown())
	assert.False(t, NodeType("Webhook").IsKnown())
}

func TestDocument_Stats(t *testing.T) {
	assert.Equal(t, Stats{}, Empty().Stats())
	assert.Equal(t, Stats{NodeCount: 3, EdgeCount: 2, ComplexityScore: 1}, testDocument().Stats())

	doc := testDocument()
	doc.Edges = append(doc.Edges, Edge{Source: "c", Target: "a"}, Edge{Source: "a", Target: "c"})
	assert.Equal(t, 3, doc.Stats().ComplexityScore)
}
