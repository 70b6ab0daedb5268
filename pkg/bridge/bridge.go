// Package bridge translates between the canvas engine's internal graph and the canonical
// graph.Document, and relays engine events as document mutations or transient UI events.
package bridge

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/dukex/flowedit/pkg/canvas"
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/google/uuid"
)

// Default ports used for every canonical edge.
const (
	DefaultOutput = "output_1"
	DefaultInput  = "input_1"
)

// Keys of the opaque payload stored as engine node data.
const (
	payloadID       = "id"
	payloadType     = "type"
	payloadPosition = "position"
	payloadData     = "data"
)

// ConnectionMode gates whether new connections may be created.
type ConnectionMode string

const (
	ConnectionModeEdit ConnectionMode = "edit"
	ConnectionModeView ConnectionMode = "view"
)

// Mutation reports one committed structural change. Events lists the engine events that
// made it up, in emission order.
type Mutation struct {
	Events []canvas.EventKind
}

// Transient reports a UI-only event. NodeID is the canonical id of the node involved, if any.
type Transient struct {
	Kind   canvas.EventKind
	NodeID string
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger used for per-item load failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithIDGenerator overrides how ids of new nodes are generated.
func WithIDGenerator(newID func() string) Option {
	return func(b *Bridge) {
		b.newID = newID
	}
}

// Bridge owns one canvas engine for the lifetime of a mounted editor.
type Bridge struct {
	engine *canvas.Editor
	logger *slog.Logger
	newID  func() string

	muted    bool
	batching bool
	batch    []canvas.EventKind

	onMutation  []func(Mutation)
	onTransient []func(Transient)
	unsubscribe []func()
}

// New wraps engine. The bridge subscribes to every event kind named by the event policy.
func New(engine *canvas.Editor, opts ...Option) *Bridge {
	b := &Bridge{
		engine: engine,
		logger: slog.Default(),
		newID:  uuid.NewString,
	}

	for _, opt := range opts {
		opt(b)
	}

	for kind := range eventPolicy {
		b.unsubscribe = append(b.unsubscribe, engine.On(kind, b.relay))
	}

	return b
}

// OnMutation registers a callback invoked after every structural change.
func (b *Bridge) OnMutation(fn func(Mutation)) {
	b.onMutation = append(b.onMutation, fn)
}

// OnTransient registers a callback invoked for selection and wire-drag events.
func (b *Bridge) OnTransient(fn func(Transient)) {
	b.onTransient = append(b.onTransient, fn)
}

// Close unsubscribes from the engine and tears it down.
func (b *Bridge) Close() error {
	for _, off := range b.unsubscribe {
		off()
	}

	b.unsubscribe = nil
	b.onMutation = nil
	b.onTransient = nil

	return b.engine.Close()
}

// Load replaces the canvas contents with doc. No mutation or transient event is relayed
// while loading. A node or edge that cannot be added is logged and skipped; the joined
// item errors are returned once the whole batch has been attempted.
func (b *Bridge) Load(doc graph.Document) error {
	b.muted = true
	defer func() { b.muted = false }()

	if err := b.engine.Clear(); err != nil {
		return err
	}

	var errs []error

	internal := make(map[string]int, len(doc.Nodes))

	for _, node := range doc.Nodes {
		if _, exists := internal[node.ID]; exists {
			errs = append(errs, b.itemFailed("node", node.ID, &graph.DuplicateIDError{ID: node.ID}))

			continue
		}

		id, err := b.addNode(node)
		if err != nil {
			errs = append(errs, b.itemFailed("node", node.ID, err))

			continue
		}

		internal[node.ID] = id
	}

	for _, edge := range doc.Edges {
		label := edge.Source + "->" + edge.Target

		out, ok := internal[edge.Source]
		if !ok {
			errs = append(errs, b.itemFailed("edge", label, &graph.DanglingEdgeError{Edge: edge, Missing: edge.Source}))

			continue
		}

		in, ok := internal[edge.Target]
		if !ok {
			errs = append(errs, b.itemFailed("edge", label, &graph.DanglingEdgeError{Edge: edge, Missing: edge.Target}))

			continue
		}

		err := b.engine.AddConnection(out, in, DefaultOutput, DefaultInput)
		if err != nil {
			errs = append(errs, b.itemFailed("edge", label, err))
		}
	}

	return errors.Join(errs...)
}

// Export rebuilds the canonical document from the engine's default module, the one Load
// writes into. Positions come from the engine; ids, types and data come from the payload
// stored when each node was added.
func (b *Bridge) Export() graph.Document {
	doc := graph.Empty()

	data, err := b.engine.Export()
	if err != nil {
		return doc
	}

	module := data.Modules[canvas.DefaultModule]
	canonical := make(map[int]string, len(module.Data))

	for _, info := range module.Nodes() {
		node := nodeFromInfo(info)
		canonical[info.ID] = node.ID
		doc.Nodes = append(doc.Nodes, node)
	}

	for _, conn := range module.Connections() {
		doc.Edges = append(doc.Edges, graph.Edge{
			Source: canonical[conn.OutputID],
			Target: canonical[conn.InputID],
		})
	}

	return doc
}

// Node returns the canonical form of one node.
func (b *Bridge) Node(id string) (graph.Node, bool) {
	internal, ok := b.internalID(id)
	if !ok {
		return graph.Node{}, false
	}

	info, ok := b.engine.Node(internal)
	if !ok {
		return graph.Node{}, false
	}

	return nodeFromInfo(info), true
}

// SetViewport replaces the pan and zoom used to translate client coordinates.
func (b *Bridge) SetViewport(viewport canvas.Viewport) error {
	return b.engine.SetViewport(viewport)
}

// Viewport returns the current pan and zoom.
func (b *Bridge) Viewport() canvas.Viewport {
	return b.engine.Viewport()
}

// ToCanvas converts client coordinates into canvas coordinates.
func (b *Bridge) ToCanvas(clientX, clientY float64) graph.Position {
	x, y := b.engine.ClientToCanvas(clientX, clientY)

	return graph.Position{X: x, Y: y}
}

// SetConnectionMode switches between edit and view mode.
func (b *Bridge) SetConnectionMode(mode ConnectionMode) error {
	var engineMode canvas.Mode

	switch mode {
	case ConnectionModeEdit:
		engineMode = canvas.ModeEdit
	case ConnectionModeView:
		engineMode = canvas.ModeView
	default:
		return ErrInvalidMode
	}

	return b.engine.SetMode(engineMode)
}

// ConnectionMode returns the current connection mode.
func (b *Bridge) ConnectionMode() ConnectionMode {
	if b.engine.Mode() == canvas.ModeView {
		return ConnectionModeView
	}

	return ConnectionModeEdit
}

func (b *Bridge) relay(event canvas.Event) {
	if b.muted {
		return
	}

	switch Classify(event.Kind) {
	case ClassStructural:
		if b.batching {
			b.batch = append(b.batch, event.Kind)

			return
		}

		b.emitMutation(Mutation{Events: []canvas.EventKind{event.Kind}})
	case ClassTransient:
		transient := Transient{Kind: event.Kind}
		if event.NodeID != 0 {
			transient.NodeID = b.canonicalID(event.NodeID)
		}

		for _, fn := range b.onTransient {
			fn(transient)
		}
	case ClassIgnored:
	}
}

func (b *Bridge) emitMutation(mutation Mutation) {
	for _, fn := range b.onMutation {
		fn(mutation)
	}
}

func (b *Bridge) itemFailed(kind, id string, err error) error {
	itemErr := &ItemError{Kind: kind, ID: id, Err: err}
	b.logger.Error("Failed to load item into canvas", "kind", kind, "id", id, "error", err)

	return itemErr
}

func (b *Bridge) addNode(node graph.Node) (int, error) {
	return b.engine.AddNode(string(node.Type), 1, 1, node.Position.X, node.Position.Y, string(node.Type), payloadOf(node))
}

// home re-activates the default module. The switch is not relayed: the canonical
// document only ever reflects the default module.
func (b *Bridge) home() {
	if b.engine.Closed() || b.engine.Module() == canvas.DefaultModule {
		return
	}

	muted := b.muted
	b.muted = true

	if err := b.engine.ChangeModule(canvas.DefaultModule); err != nil {
		b.logger.Error("Failed to return to the default module", "error", err)
	}

	b.muted = muted
}

// internalID finds the engine id of a canonical node id in the default module.
func (b *Bridge) internalID(id string) (int, bool) {
	b.home()

	for _, info := range b.engine.Nodes() {
		if nodeFromInfo(info).ID == id {
			return info.ID, true
		}
	}

	return 0, false
}

func (b *Bridge) canonicalID(internal int) string {
	info, ok := b.engine.Node(internal)
	if !ok {
		return strconv.Itoa(internal)
	}

	return nodeFromInfo(info).ID
}

func payloadOf(node graph.Node) map[string]any {
	data := graph.CloneData(node.Data)
	if data == nil {
		data = map[string]any{}
	}

	return map[string]any{
		payloadID:   node.ID,
		payloadType: string(node.Type),
		payloadPosition: map[string]any{
			"x": node.Position.X,
			"y": node.Position.Y,
		},
		payloadData: data,
	}
}

// nodeFromInfo reconciles an engine node into canonical form. Nodes created on the engine
// without a payload fall back to the engine id and node name.
func nodeFromInfo(info canvas.NodeInfo) graph.Node {
	node := graph.Node{
		ID:       strconv.Itoa(info.ID),
		Type:     graph.NodeType(info.Name),
		Position: graph.Position{X: info.PosX, Y: info.PosY},
		Data:     map[string]any{},
	}

	if id, ok := info.Data[payloadID].(string); ok && id != "" {
		node.ID = id
	}

	if nodeType, ok := info.Data[payloadType].(string); ok && nodeType != "" {
		node.Type = graph.NodeType(nodeType)
	}

	if data, ok := info.Data[payloadData].(map[string]any); ok {
		node.Data = graph.CloneData(data)
	}

	return node
}
