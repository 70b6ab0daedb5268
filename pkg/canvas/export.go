package canvas

import (
	"maps"
	"slices"
)

// Module is the exported node table of one module.
type Module struct {
	Data map[int]NodeInfo `json:"data"`
}

// ExportData is the engine's full internal graph.
type ExportData struct {
	Modules map[string]Module `json:"drawflow"`
}

// Nodes returns the module's nodes ordered by id.
func (m Module) Nodes() []NodeInfo {
	out := make([]NodeInfo, 0, len(m.Data))
	for _, id := range slices.Sorted(maps.Keys(m.Data)) {
		out = append(out, m.Data[id])
	}

	return out
}

// Connections lists the module's wires in the same order as Editor.Connections.
func (m Module) Connections() []Connection {
	conns := make([]Connection, 0)

	for _, id := range slices.Sorted(maps.Keys(m.Data)) {
		node := m.Data[id]
		conns = append(conns, outgoing(&node)...)
	}

	return conns
}

// Export returns a deep copy of every module.
func (e *Editor) Export() (ExportData, error) {
	if e.closed {
		return ExportData{}, ErrClosed
	}

	out := ExportData{Modules: make(map[string]Module, len(e.modules))}

	for name, nodes := range e.modules {
		module := Module{Data: make(map[int]NodeInfo, len(nodes))}
		for id, node := range nodes {
			module.Data[id] = node.clone()
		}

		out.Modules[name] = module
	}

	return out, nil
}

// Viewport maps client (screen) coordinates onto the canvas.
type Viewport struct {
	OriginX    float64 // Client position of the canvas element's top-left corner
	OriginY    float64
	TranslateX float64 // Current pan offset
	TranslateY float64
	Zoom       float64
}

// SetViewport replaces the current viewport. A zoom that is not positive is treated as 1.
func (e *Editor) SetViewport(viewport Viewport) error {
	if e.closed {
		return ErrClosed
	}

	if viewport.Zoom <= 0 {
		viewport.Zoom = 1
	}

	e.viewport = viewport

	return nil
}

// Viewport returns the current viewport.
func (e *Editor) Viewport() Viewport {
	return e.viewport
}

// ClientToCanvas converts a client coordinate, such as a drop point, into canvas space.
func (e *Editor) ClientToCanvas(clientX, clientY float64) (float64, float64) {
	zoom := e.viewport.Zoom
	if zoom <= 0 {
		zoom = 1
	}

	x := (clientX - e.viewport.OriginX - e.viewport.TranslateX) / zoom
	y := (clientY - e.viewport.OriginY - e.viewport.TranslateY) / zoom

	return x, y
}
