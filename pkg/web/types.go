// Package web provides the HTTP API for stored workflows and their editor sessions.
package web

import (
	"github.com/dukex/flowedit/pkg/bridge"
	"github.com/dukex/flowedit/pkg/canvas"
	"github.com/dukex/flowedit/pkg/editor"
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/sessions"
)

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name     string `json:"name"      validate:"required,min=3"`
	Type     string `json:"type"      validate:"omitempty,oneof=CHATFLOW AGENTFLOW MULTIAGENT"`
	FlowData string `json:"flow_data"`
}

// UpdateWorkflowRequest represents the request body for updating an existing workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name     *string `json:"name,omitempty"      validate:"omitempty,min=3"`
	Type     *string `json:"type,omitempty"      validate:"omitempty,oneof=CHATFLOW AGENTFLOW MULTIAGENT"`
	FlowData *string `json:"flow_data,omitempty"`
}

// DropRequest is a palette item dropped on the canvas.
type DropRequest struct {
	NodeType string  `json:"node_type" validate:"required"`
	ClientX  float64 `json:"client_x"`
	ClientY  float64 `json:"client_y"`
}

// AddNodeRequest adds a node at the default position, as the canvas context menu does.
type AddNodeRequest struct {
	Type string `json:"type" validate:"required"`
}

type MoveNodeRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type UpdateNodeDataRequest struct {
	Data map[string]any `json:"data" validate:"required"`
}

type ConnectRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

type WireStartRequest struct {
	Source string `json:"source" validate:"required"`
}

type WireFinishRequest struct {
	Target string `json:"target" validate:"required"`
}

// ViewportRequest carries the canvas element's client origin, its pan offset and zoom.
type ViewportRequest struct {
	OriginX    float64 `json:"origin_x"`
	OriginY    float64 `json:"origin_y"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
	Zoom       float64 `json:"zoom"        validate:"gte=0"`
}

func (r ViewportRequest) viewport() canvas.Viewport {
	return canvas.Viewport{
		OriginX:    r.OriginX,
		OriginY:    r.OriginY,
		TranslateX: r.TranslateX,
		TranslateY: r.TranslateY,
		Zoom:       r.Zoom,
	}
}

// ViewportResponse mirrors ViewportRequest.
type ViewportResponse ViewportRequest

type ModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=edit view"`
}

// SessionResponse describes an open editor session.
type SessionResponse struct {
	ID         string                `json:"id"`
	WorkflowID string                `json:"workflow_id"`
	Restored   bool                  `json:"restored"`
	Document   graph.Document        `json:"document"`
	Selected   string                `json:"selected,omitempty"`
	Mode       bridge.ConnectionMode `json:"mode"`
	Viewport   ViewportResponse      `json:"viewport"`
	CanUndo    bool                  `json:"can_undo"`
	CanRedo    bool                  `json:"can_redo"`
}

// HistoryResponse reports the result of an undo, redo or key binding.
type HistoryResponse struct {
	Action  editor.KeyAction `json:"action,omitempty"`
	Applied bool             `json:"applied"`
	CanUndo bool             `json:"can_undo"`
	CanRedo bool             `json:"can_redo"`
}

func newSessionResponse(session *sessions.Session) (SessionResponse, error) {
	doc, err := session.Editor.Document()
	if err != nil {
		return SessionResponse{}, err
	}

	mode, err := session.Editor.ConnectionMode()
	if err != nil {
		return SessionResponse{}, err
	}

	viewport, err := session.Editor.Viewport()
	if err != nil {
		return SessionResponse{}, err
	}

	return SessionResponse{
		ID:         session.ID,
		WorkflowID: session.Editor.Workflow().ID,
		Restored:   session.Restored,
		Document:   doc,
		Selected:   session.Editor.Selection().NodeID,
		Mode:       mode,
		Viewport: ViewportResponse{
			OriginX:    viewport.OriginX,
			OriginY:    viewport.OriginY,
			TranslateX: viewport.TranslateX,
			TranslateY: viewport.TranslateY,
			Zoom:       viewport.Zoom,
		},
		CanUndo:    session.Editor.CanUndo(),
		CanRedo:    session.Editor.CanRedo(),
	}, nil
}

func newHistoryResponse(session *sessions.Session, action editor.KeyAction, applied bool) HistoryResponse {
	return HistoryResponse{
		Action:  action,
		Applied: applied,
		CanUndo: session.Editor.CanUndo(),
		CanRedo: session.Editor.CanRedo(),
	}
}
