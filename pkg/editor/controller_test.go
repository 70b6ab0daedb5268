package editor

import (
	"testing"

	"github.com/dukex/flowedit/pkg/bridge"
	"github.com/dukex/flowedit/pkg/canvas"
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/palette"
	"github.com/dukex/flowedit/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptySession(t *testing.T, opts ...Option) (*Session, *recordingHost) {
	t.Helper()

	return mountSession(t, testutil.CreateTestWorkflow(graph.Empty()), opts...)
}

func TestController_BuildScenario(t *testing.T) {
	s, host := emptySession(t)

	start, err := s.Drop(DropEvent{NodeType: "Start", ClientX: 100, ClientY: 100})
	require.NoError(t, err)

	agent, err := s.Drop(DropEvent{NodeType: "Agent", ClientX: 300, ClientY: 100})
	require.NoError(t, err)

	require.NoError(t, s.Connect(start.ID, agent.ID))

	doc := mustDocument(t, s)
	assert.Len(t, doc.Nodes, 2)
	assert.Equal(t, []graph.Edge{{Source: start.ID, Target: agent.ID}}, doc.Edges)

	require.Len(t, host.changes, 3)

	last, err := graph.ParseFlowData(host.changes[2])
	require.NoError(t, err)
	assert.Equal(t, doc, last)
}

func TestController_DropUsesCanvasCoordinatesAndPaletteData(t *testing.T) {
	custom := palette.Default().Merge(palette.New([]palette.Entry{{
		Type: graph.NodeTypeLLM, Label: "Model", Category: "AI", Defaults: map[string]any{"temperature": 0.7},
	}}))

	s, _ := emptySession(t, WithPalette(custom))
	require.NoError(t, s.SetViewport(canvas.Viewport{OriginX: 50, OriginY: 20, Zoom: 2}))

	viewport, err := s.Viewport()
	require.NoError(t, err)
	assert.InDelta(t, 2, viewport.Zoom, 0)

	node, err := s.Drop(DropEvent{NodeType: "LLM", ClientX: 250, ClientY: 220})
	require.NoError(t, err)

	assert.Equal(t, graph.NodeTypeLLM, node.Type)
	assert.Equal(t, graph.Position{X: 100, Y: 100}, node.Position)
	assert.Equal(t, map[string]any{"label": "Model", "type": "LLM", "category": "AI", "temperature": 0.7}, node.Data)
}

func TestController_DropRejectsBadPayloads(t *testing.T) {
	s, host := emptySession(t)

	_, err := s.Drop(DropEvent{NodeType: "  "})
	require.ErrorIs(t, err, ErrEmptyDropPayload)

	_, err = s.Drop(DropEvent{NodeType: "Webhook"})
	require.ErrorIs(t, err, palette.ErrUnknownNodeType)

	assert.Empty(t, mustDocument(t, s).Nodes)
	assert.Empty(t, host.changes)
}

func TestController_AddNodeAtDefault(t *testing.T) {
	s, _ := emptySession(t)

	node, err := s.AddNodeAtDefault(graph.NodeTypeTool)
	require.NoError(t, err)

	assert.Equal(t, DefaultNodePosition, node.Position)
	assert.Equal(t, "Tool", node.Label())
}

func TestController_Duplicate(t *testing.T) {
	original := graph.Node{
		ID:       "a",
		Type:     graph.NodeTypeAgent,
		Position: graph.Position{X: 10, Y: 10},
		Data:     map[string]any{"label": "Agent", "type": "Agent", "category": "General", "prompt": "be brief"},
	}
	s, _ := mountSession(t, testutil.CreateTestWorkflow(testutil.CreateTestDocument([]graph.Node{original})))

	duplicate, err := s.DuplicateNode("a")
	require.NoError(t, err)

	assert.NotEqual(t, "a", duplicate.ID)
	assert.Equal(t, graph.Position{X: 60, Y: 60}, duplicate.Position)
	assert.Equal(t, "Agent (cópia)", duplicate.Label())
	assert.Equal(t, graph.NodeTypeAgent, duplicate.Type)

	delete(duplicate.Data, "label")
	expected := graph.CloneData(original.Data)
	delete(expected, "label")
	assert.Equal(t, expected, duplicate.Data)

	doc := mustDocument(t, s)
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, original, doc.Nodes[0])
	assert.Empty(t, doc.Edges)

	_, err = s.DuplicateNode("ghost")
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestController_CascadingDelete(t *testing.T) {
	s, _ := mountSession(t, testutil.CreateTestWorkflow(testutil.CreateTestChain("A", "B", "C")))

	require.NoError(t, s.DeleteNode("B"))

	doc := mustDocument(t, s)
	assert.Empty(t, doc.Edges)
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "A", doc.Nodes[0].ID)
	assert.Equal(t, "C", doc.Nodes[1].ID)
	require.NoError(t, graph.Validate(doc))

	past, _ := s.HistoryDepth()
	assert.Equal(t, 1, past)
}

func TestController_ClearConnections(t *testing.T) {
	chain := testutil.CreateTestChain("A", "B", "C", "D")
	s, _ := mountSession(t, testutil.CreateTestWorkflow(chain))

	require.NoError(t, s.ClearConnections())

	doc := mustDocument(t, s)
	assert.Empty(t, doc.Edges)
	assert.Equal(t, chain.Nodes, doc.Nodes)
}

func TestController_UndoRedoInverseLaw(t *testing.T) {
	initial := testutil.CreateTestChain("A", "B")
	s, _ := mountSession(t, testutil.CreateTestWorkflow(initial))

	states := []graph.Document{mustDocument(t, s)}

	_, err := s.AddNodeAtDefault(graph.NodeTypeLoop)
	require.NoError(t, err)
	states = append(states, mustDocument(t, s))

	require.NoError(t, s.MoveNode("A", 7, 9))
	states = append(states, mustDocument(t, s))

	require.NoError(t, s.Connect("B", "A"))
	states = append(states, mustDocument(t, s))

	require.NoError(t, s.DeleteNode("B"))
	states = append(states, mustDocument(t, s))

	n := len(states) - 1

	for i := n - 1; i >= 0; i-- {
		applied, err := s.Undo()
		require.NoError(t, err)
		require.True(t, applied)
		assert.Equal(t, states[i], mustDocument(t, s))
	}

	assert.Equal(t, initial, mustDocument(t, s))

	for i := 1; i <= n; i++ {
		applied, err := s.Redo()
		require.NoError(t, err)
		require.True(t, applied)
		assert.Equal(t, states[i], mustDocument(t, s))
	}
}

func TestController_UndoRedoBoundaries(t *testing.T) {
	s, _ := emptySession(t)

	applied, err := s.Undo()
	require.NoError(t, err)
	assert.False(t, applied)
	assert.False(t, s.CanUndo())

	applied, err = s.Redo()
	require.NoError(t, err)
	assert.False(t, applied)
	assert.False(t, s.CanRedo())
}

func TestController_UndoDoesNotNotifyOrRecord(t *testing.T) {
	s, host := emptySession(t)

	_, err := s.AddNodeAtDefault(graph.NodeTypeStart)
	require.NoError(t, err)
	require.Len(t, host.changes, 1)

	_, err = s.Undo()
	require.NoError(t, err)

	assert.Len(t, host.changes, 1)

	past, future := s.HistoryDepth()
	assert.Equal(t, 0, past)
	assert.Equal(t, 1, future)
}

func TestController_RedoInvalidation(t *testing.T) {
	s, _ := emptySession(t)

	_, err := s.AddNodeAtDefault(graph.NodeTypeStart)
	require.NoError(t, err)

	_, err = s.Undo()
	require.NoError(t, err)
	require.True(t, s.CanRedo())

	_, err = s.AddNodeAtDefault(graph.NodeTypeAgent)
	require.NoError(t, err)

	before := mustDocument(t, s)

	applied, err := s.Redo()
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, before, mustDocument(t, s))
}

func TestController_HistoryDepthBound(t *testing.T) {
	s, _ := emptySession(t, WithHistoryDepth(3))

	for range 5 {
		_, err := s.AddNodeAtDefault(graph.NodeTypeTool)
		require.NoError(t, err)
	}

	past, _ := s.HistoryDepth()
	assert.Equal(t, 3, past)
}

func TestController_SelectionIsHistoryNeutral(t *testing.T) {
	s, host := mountSession(t, testutil.CreateTestWorkflow(testutil.CreateTestChain("A", "B")))

	require.NoError(t, s.SelectNode("A"))
	require.NoError(t, s.SelectNode("A"))
	require.NoError(t, s.SelectNode("B"))

	past, future := s.HistoryDepth()
	assert.Equal(t, 0, past)
	assert.Equal(t, 0, future)
	assert.Empty(t, host.changes)

	assert.Equal(t, Selection{NodeID: "B"}, s.Selection())
	require.Len(t, host.clicked, 2)
	assert.Equal(t, "A", host.clicked[0].ID)
	assert.Equal(t, "B", host.clicked[1].ID)

	require.NoError(t, s.ClearSelection())
	assert.False(t, s.Selection().Selected())
}

func TestController_DeletingSelectedNodeUnselects(t *testing.T) {
	s, _ := mountSession(t, testutil.CreateTestWorkflow(testutil.CreateTestChain("A", "B")))

	require.NoError(t, s.SelectNode("B"))
	require.NoError(t, s.DeleteNode("B"))

	assert.Equal(t, Selection{}, s.Selection())
}

func TestController_UndoDroppingSelectedNodeUnselects(t *testing.T) {
	s, _ := emptySession(t)

	node, err := s.AddNodeAtDefault(graph.NodeTypeStart)
	require.NoError(t, err)
	require.NoError(t, s.SelectNode(node.ID))

	_, err = s.Undo()
	require.NoError(t, err)
	assert.False(t, s.Selection().Selected())
}

func TestController_UndoKeepsSurvivingSelection(t *testing.T) {
	s, host := mountSession(t, testutil.CreateTestWorkflow(testutil.CreateTestChain("A", "B")))

	require.NoError(t, s.MoveNode("B", 1, 1))
	require.NoError(t, s.SelectNode("A"))

	_, err := s.Undo()
	require.NoError(t, err)

	assert.Equal(t, Selection{NodeID: "A"}, s.Selection())
	assert.Len(t, host.clicked, 1)
}

func TestController_EditAndInfo(t *testing.T) {
	s, host := mountSession(t, testutil.CreateTestWorkflow(testutil.CreateTestChain("A")))

	require.NoError(t, s.EditNode("A"))
	require.Len(t, host.edited, 1)
	assert.Equal(t, "A", host.edited[0].ID)

	info, err := s.NodeInfo("A")
	require.NoError(t, err)
	assert.Equal(t, "A", info.Label())

	_, err = s.NodeInfo("ghost")
	require.ErrorIs(t, err, ErrNodeNotFound)
	require.ErrorIs(t, s.EditNode("ghost"), ErrNodeNotFound)

	past, _ := s.HistoryDepth()
	assert.Zero(t, past)
	assert.Empty(t, host.changes)
}

func TestController_UpdateNodeData(t *testing.T) {
	s, host := mountSession(t, testutil.CreateTestWorkflow(testutil.CreateTestChain("A")))

	require.NoError(t, s.UpdateNodeData("A", map[string]any{"label": "Renamed", "type": "Agent", "category": "General"}))

	info, err := s.NodeInfo("A")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", info.Label())
	assert.Len(t, host.changes, 1)
	assert.True(t, s.CanUndo())
}

func TestController_SaveAndPreview(t *testing.T) {
	s, host := emptySession(t)

	require.NoError(t, s.Save())
	require.NoError(t, s.Preview())

	assert.Equal(t, 1, host.saves)
	assert.Equal(t, 1, host.previews)

	flowData, err := s.FlowData()
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes": [], "edges": []}`, flowData)
}

func TestController_ConnectUnknownNode(t *testing.T) {
	s, _ := mountSession(t, testutil.CreateTestWorkflow(testutil.CreateTestChain("A")))

	err := s.Connect("A", "ghost")
	require.Error(t, err)
	assert.True(t, bridge.IsNodeNotFound(err))
}

func TestController_WireGesture(t *testing.T) {
	var events []Event

	s, host := mountSession(t, testutil.CreateTestWorkflow(testutil.CreateTestChain("A", "B")), WithEventObserver(func(e Event) {
		events = append(events, e)
	}))

	require.NoError(t, s.BeginConnection("B"))
	require.NoError(t, s.FinishConnection("A"))

	doc := mustDocument(t, s)
	assert.Equal(t, []graph.Edge{{Source: "A", Target: "B"}, {Source: "B", Target: "A"}}, doc.Edges)
	assert.Len(t, host.changes, 1)
	assert.True(t, s.CanUndo())

	kinds := make([]canvas.EventKind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kinds...)
	}

	assert.Equal(t, []canvas.EventKind{
		canvas.EventConnectionStart,
		canvas.EventConnectionEnd,
		canvas.EventConnectionCreated,
	}, kinds)

	require.NoError(t, s.BeginConnection("A"))
	require.NoError(t, s.CancelConnection())
	require.ErrorIs(t, s.FinishConnection("B"), bridge.ErrNoPendingConnection)
	assert.Len(t, host.changes, 1)
}

func TestController_Disconnect(t *testing.T) {
	s, host := mountSession(t, testutil.CreateTestWorkflow(testutil.CreateTestChain("A", "B", "C")))

	require.NoError(t, s.Disconnect("A", "B"))

	assert.Equal(t, []graph.Edge{{Source: "B", Target: "C"}}, mustDocument(t, s).Edges)
	assert.Len(t, host.changes, 1)

	undone, err := s.Undo()
	require.NoError(t, err)
	assert.True(t, undone)
	assert.Len(t, mustDocument(t, s).Edges, 2)
}
