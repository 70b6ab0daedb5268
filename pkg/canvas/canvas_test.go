package canvas

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
}

func (r *recorder) attach(e *Editor, kinds ...EventKind) {
	for _, kind := range kinds {
		e.On(kind, func(ev Event) { r.events = append(r.events, ev) })
	}
}

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}

	return out
}

var allKinds = []EventKind{
	EventNodeCreated, EventNodeRemoved, EventNodeMoved, EventNodeDataChanged,
	EventNodeSelected, EventNodeUnselected, EventConnectionCreated, EventConnectionRemoved,
	EventConnectionStart, EventConnectionEnd, EventConnectionCancel, EventModuleChanged,
}

func addNode(t *testing.T, e *Editor, name string) int {
	t.Helper()

	id, err := e.AddNode(name, 1, 1, 10, 20, name, map[string]any{"label": name})
	require.NoError(t, err)

	return id
}

func TestEditor_AddNodeAssignsSequentialIDs(t *testing.T) {
	e := New()
	rec := &recorder{}
	rec.attach(e, allKinds...)

	first := addNode(t, e, "a")
	second := addNode(t, e, "b")

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
	assert.Equal(t, []EventKind{EventNodeCreated, EventNodeCreated}, rec.kinds())

	node, ok := e.Node(first)
	require.True(t, ok)
	assert.Equal(t, "a", node.Name)
	assert.Contains(t, node.Inputs, "input_1")
	assert.Contains(t, node.Outputs, "output_1")
	assert.InDelta(t, 10, node.PosX, 0)
}

func TestEditor_AddNodeCopiesData(t *testing.T) {
	e := New()
	data := map[string]any{"nested": map[string]any{"k": "v"}}

	id, err := e.AddNode("a", 1, 1, 0, 0, "", data)
	require.NoError(t, err)

	data["nested"].(map[string]any)["k"] = "changed"

	node, _ := e.Node(id)
	assert.Equal(t, "v", node.Data["nested"].(map[string]any)["k"])

	node.Data["nested"].(map[string]any)["k"] = "changed"

	again, _ := e.Node(id)
	assert.Equal(t, "v", again.Data["nested"].(map[string]any)["k"])
}

func TestEditor_RemoveNodeDropsConnectionsFirst(t *testing.T) {
	e := New()
	a := addNode(t, e, "a")
	b := addNode(t, e, "b")
	c := addNode(t, e, "c")

	require.NoError(t, e.AddConnection(a, b, "output_1", "input_1"))
	require.NoError(t, e.AddConnection(b, c, "output_1", "input_1"))

	rec := &recorder{}
	rec.attach(e, allKinds...)

	require.NoError(t, e.RemoveNode(b))

	assert.Equal(t, []EventKind{EventConnectionRemoved, EventConnectionRemoved, EventNodeRemoved}, rec.kinds())
	assert.Empty(t, e.Connections())
	assert.Len(t, e.Nodes(), 2)

	nodeA, _ := e.Node(a)
	assert.Empty(t, nodeA.Outputs["output_1"].Connections)
}

func TestEditor_ParallelConnectionsAreKept(t *testing.T) {
	e := New()
	a := addNode(t, e, "a")
	b := addNode(t, e, "b")

	require.NoError(t, e.AddConnection(a, b, "output_1", "input_1"))
	require.NoError(t, e.AddConnection(a, b, "output_1", "input_1"))
	assert.Len(t, e.Connections(), 2)

	require.NoError(t, e.RemoveConnection(Connection{OutputID: a, InputID: b, OutputPort: "output_1", InputPort: "input_1"}))
	assert.Len(t, e.Connections(), 1)
}

func TestEditor_ConnectionErrors(t *testing.T) {
	e := New()
	a := addNode(t, e, "a")
	b := addNode(t, e, "b")

	assert.ErrorIs(t, e.AddConnection(a, 99, "output_1", "input_1"), ErrNodeNotFound)
	assert.ErrorIs(t, e.AddConnection(a, b, "output_2", "input_1"), ErrPortNotFound)
	assert.ErrorIs(t, e.RemoveConnection(Connection{OutputID: a, InputID: b, OutputPort: "output_1", InputPort: "input_1"}), ErrConnectionNotFound)
}

func TestEditor_SelfLoopRemovedWithNode(t *testing.T) {
	e := New()
	a := addNode(t, e, "a")

	require.NoError(t, e.AddConnection(a, a, "output_1", "input_1"))
	require.NoError(t, e.RemoveNode(a))
	assert.Empty(t, e.Nodes())
}

func TestEditor_SelectionEvents(t *testing.T) {
	e := New()
	a := addNode(t, e, "a")
	b := addNode(t, e, "b")

	rec := &recorder{}
	rec.attach(e, EventNodeSelected, EventNodeUnselected, EventNodeRemoved)

	require.NoError(t, e.SelectNode(a))
	require.NoError(t, e.SelectNode(b))
	require.NoError(t, e.RemoveNode(b))

	assert.Equal(t, []EventKind{
		EventNodeSelected,
		EventNodeUnselected,
		EventNodeSelected,
		EventNodeUnselected,
		EventNodeRemoved,
	}, rec.kinds())

	_, selected := e.Selected()
	assert.False(t, selected)
}

func TestEditor_PointerConnectionGesture(t *testing.T) {
	e := New()
	a := addNode(t, e, "a")
	b := addNode(t, e, "b")

	rec := &recorder{}
	rec.attach(e, allKinds...)

	require.NoError(t, e.BeginConnection(a, "output_1"))
	require.NoError(t, e.FinishConnection(b, "input_1"))

	assert.Equal(t, []EventKind{EventConnectionStart, EventConnectionEnd, EventConnectionCreated}, rec.kinds())
	assert.Len(t, e.Connections(), 1)

	assert.ErrorIs(t, e.FinishConnection(b, "input_1"), ErrNoPendingConnection)
}

func TestEditor_PointerConnectionInvalidTargetCancels(t *testing.T) {
	e := New()
	a := addNode(t, e, "a")

	rec := &recorder{}
	rec.attach(e, allKinds...)

	require.NoError(t, e.BeginConnection(a, "output_1"))
	require.ErrorIs(t, e.FinishConnection(42, "input_1"), ErrNodeNotFound)

	assert.Equal(t, []EventKind{EventConnectionStart, EventConnectionEnd, EventConnectionCancel}, rec.kinds())
}

func TestEditor_ViewModeBlocksPointerConnections(t *testing.T) {
	e := New()
	a := addNode(t, e, "a")
	require.NoError(t, e.SetMode(ModeView))

	assert.ErrorIs(t, e.BeginConnection(a, "output_1"), ErrReadOnly)
}

func TestEditor_ModulesAndClear(t *testing.T) {
	e := New()
	addNode(t, e, "a")

	rec := &recorder{}
	rec.attach(e, EventModuleChanged)

	require.ErrorIs(t, e.AddModule(DefaultModule), ErrModuleExists)
	require.NoError(t, e.AddModule("Other"))
	require.ErrorIs(t, e.AddModule("Other"), ErrModuleExists)
	require.NoError(t, e.ChangeModule("Other"))
	assert.Empty(t, e.Nodes())
	assert.Equal(t, "Other", e.Module())
	require.ErrorIs(t, e.ChangeModule("Missing"), ErrModuleNotFound)

	require.NoError(t, e.Clear())
	assert.Equal(t, DefaultModule, e.Module())
	assert.Empty(t, e.Nodes())
	assert.Len(t, rec.events, 1)
	require.ErrorIs(t, e.ChangeModule("Other"), ErrModuleNotFound)

	next := addNode(t, e, "b")
	assert.Equal(t, 2, next)
}

func TestEditor_Export(t *testing.T) {
	e := New()
	a := addNode(t, e, "a")
	b := addNode(t, e, "b")
	require.NoError(t, e.AddConnection(a, b, "output_1", "input_1"))

	data, err := e.Export()
	require.NoError(t, err)

	home := data.Modules[DefaultModule]
	require.Len(t, home.Data, 2)
	assert.Equal(t, []PortConnection{{Node: b, Port: "input_1"}}, home.Data[a].Outputs["output_1"].Connections)
	assert.Equal(t, []PortConnection{{Node: a, Port: "output_1"}}, home.Data[b].Inputs["input_1"].Connections)

	assert.Equal(t, e.Nodes(), home.Nodes())
	assert.Equal(t, e.Connections(), home.Connections())
}

func TestEditor_ClientToCanvas(t *testing.T) {
	e := New()
	require.NoError(t, e.SetViewport(Viewport{OriginX: 100, OriginY: 50, TranslateX: 20, TranslateY: 10, Zoom: 2}))

	x, y := e.ClientToCanvas(320, 260)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 100, y, 1e-9)

	require.NoError(t, e.SetViewport(Viewport{}))
	assert.InDelta(t, 1, e.Viewport().Zoom, 0)

	x, y = e.ClientToCanvas(15, 25)
	assert.InDelta(t, 15, x, 1e-9)
	assert.InDelta(t, 25, y, 1e-9)
}

func TestEditor_UnsubscribeAndClose(t *testing.T) {
	e := New()

	calls := 0
	off := e.On(EventNodeCreated, func(Event) { calls++ })

	addNode(t, e, "a")
	off()
	addNode(t, e, "b")
	assert.Equal(t, 1, calls)

	require.NoError(t, e.Close())
	assert.True(t, e.Closed())
	assert.ErrorIs(t, e.Close(), ErrClosed)

	_, err := e.AddNode("c", 1, 1, 0, 0, "", nil)
	require.ErrorIs(t, err, ErrClosed)

	_, err = e.Export()
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, e.SetViewport(Viewport{Zoom: 2}), ErrClosed)
}

func TestOpen_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx)
	require.ErrorIs(t, err, context.Canceled)

	e, err := Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeEdit, e.Mode())
}
