package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/dukex/flowedit/pkg/bridge"
	"github.com/dukex/flowedit/pkg/editor"
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/dukex/flowedit/pkg/render"
	"github.com/dukex/flowedit/pkg/sessions"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const svgContentType = "image/svg+xml"

type APIHandlers struct {
	persistence persistence.Persistence
	sessions    *sessions.Manager
	validator   *validator.Validate
}

func NewAPIHandlers(
	persistence persistence.Persistence,
	sessions *sessions.Manager,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		persistence: persistence,
		sessions:    sessions,
		validator:   validator,
	}
}

// Register mounts the workflow and session routes on r.
func (h *APIHandlers) Register(r fiber.Router) {
	w := r.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Get("/:id/preview", h.PreviewWorkflow)
	w.Post("/:id/sessions", h.OpenSession)

	s := r.Group("/sessions")
	s.Get("/:sid", h.GetSession)
	s.Delete("/:sid", h.CloseSession)
	s.Post("/:sid/drop", h.Drop)
	s.Post("/:sid/nodes", h.AddNode)
	s.Get("/:sid/nodes/:nodeId", h.GetNode)
	s.Patch("/:sid/nodes/:nodeId", h.UpdateNodeData)
	s.Delete("/:sid/nodes/:nodeId", h.DeleteNode)
	s.Put("/:sid/nodes/:nodeId/position", h.MoveNode)
	s.Post("/:sid/nodes/:nodeId/duplicate", h.DuplicateNode)
	s.Post("/:sid/nodes/:nodeId/edit", h.EditNode)
	s.Post("/:sid/nodes/:nodeId/select", h.SelectNode)
	s.Delete("/:sid/selection", h.ClearSelection)
	s.Post("/:sid/connections", h.Connect)
	s.Delete("/:sid/connections", h.Disconnect)
	s.Delete("/:sid/connections/all", h.ClearConnections)
	s.Post("/:sid/wire", h.BeginWire)
	s.Post("/:sid/wire/finish", h.FinishWire)
	s.Delete("/:sid/wire", h.CancelWire)
	s.Put("/:sid/viewport", h.SetViewport)
	s.Put("/:sid/mode", h.SetMode)
	s.Post("/:sid/keys", h.KeyDown)
	s.Post("/:sid/undo", h.Undo)
	s.Post("/:sid/redo", h.Redo)
	s.Post("/:sid/save", h.Save)
	s.Get("/:sid/preview", h.Preview)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow := &models.Workflow{
		Name: req.Name,
		Type: models.WorkflowType(req.Type),
	}

	if err := applyFlowData(workflow, req.FlowData); err != nil {
		return handleError(c, err)
	}

	if err := h.persistence.SaveWorkflow(c.Context(), workflow); err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Type != nil {
		existing.Type = models.WorkflowType(*req.Type)
	}

	if req.FlowData != nil {
		if err := applyFlowData(existing, *req.FlowData); err != nil {
			return handleError(c, err)
		}
	}

	if err := h.persistence.SaveWorkflow(c.Context(), existing); err != nil {
		return handleError(c, err)
	}

	return c.JSON(existing)
}

// applyFlowData accepts flow data only if it parses into a structurally valid document,
// and stores it in canonical form.
func applyFlowData(workflow *models.Workflow, flowData string) error {
	doc, err := graph.ParseFlowData(flowData)
	if err != nil {
		return err
	}

	if err := graph.Validate(doc); err != nil {
		return err
	}

	canonical, err := graph.Marshal(doc)
	if err != nil {
		return err
	}

	workflow.ApplyFlowData(canonical, doc)

	return nil
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.persistence.WorkflowByID(c.Context(), id); err != nil {
		return handleError(c, err)
	}

	if err := h.persistence.DeleteWorkflow(c.Context(), id); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// PreviewWorkflow renders the stored flow data as SVG. Malformed flow data renders empty.
func (h *APIHandlers) PreviewWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	doc, _ := graph.ParseFlowData(workflow.FlowData)

	svg, err := render.Preview(c.Context(), doc, render.Options{
		Detailed:    c.Query("detailed") == "true",
		LeftToRight: true,
	})
	if err != nil {
		return internalError(c, err)
	}

	c.Set(fiber.HeaderContentType, svgContentType)

	return c.Send(svg)
}

func (h *APIHandlers) OpenSession(c fiber.Ctx) error {
	session, err := h.sessions.Open(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return h.sessionResponse(c, fiber.StatusCreated, session)
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	return h.sessionResponse(c, fiber.StatusOK, session)
}

func (h *APIHandlers) CloseSession(c fiber.Ctx) error {
	if err := h.sessions.Close(c.Params("sid")); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) sessionResponse(c fiber.Ctx, status int, session *sessions.Session) error {
	resp, err := newSessionResponse(session)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(status).JSON(resp)
}

// session runs fn against the session named in the route and answers with the session
// state afterwards.
func (h *APIHandlers) session(c fiber.Ctx, fn func(*sessions.Session) error) error {
	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	if err := fn(session); err != nil {
		return handleError(c, err)
	}

	return h.sessionResponse(c, fiber.StatusOK, session)
}

var errInvalidJSON = errors.New("Invalid JSON format") //nolint:staticcheck

// bind decodes and validates the JSON body into req.
func (h *APIHandlers) bind(c fiber.Ctx, req any) error {
	if err := c.Bind().JSON(req); err != nil {
		return errInvalidJSON
	}

	return h.validator.Struct(req)
}

func (h *APIHandlers) Drop(c fiber.Ctx) error {
	var req DropRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.nodeResult(c, func(s *sessions.Session) (graph.Node, error) {
		return s.Editor.Drop(editor.DropEvent{NodeType: req.NodeType, ClientX: req.ClientX, ClientY: req.ClientY})
	})
}

func (h *APIHandlers) AddNode(c fiber.Ctx) error {
	var req AddNodeRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.nodeResult(c, func(s *sessions.Session) (graph.Node, error) {
		return s.Editor.AddNodeAtDefault(graph.NodeType(req.Type))
	})
}

func (h *APIHandlers) DuplicateNode(c fiber.Ctx) error {
	return h.nodeResult(c, func(s *sessions.Session) (graph.Node, error) {
		return s.Editor.DuplicateNode(c.Params("nodeId"))
	})
}

// nodeResult answers 201 with the node fn created.
func (h *APIHandlers) nodeResult(c fiber.Ctx, fn func(*sessions.Session) (graph.Node, error)) error {
	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	node, err := fn(session)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *APIHandlers) GetNode(c fiber.Ctx) error {
	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	node, err := session.Editor.NodeInfo(c.Params("nodeId"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(node)
}

// EditNode answers with the node handed to the edit dialog.
func (h *APIHandlers) EditNode(c fiber.Ctx) error {
	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	if err := session.Editor.EditNode(c.Params("nodeId")); err != nil {
		return handleError(c, err)
	}

	node, _ := session.Editing()

	return c.JSON(node)
}

func (h *APIHandlers) UpdateNodeData(c fiber.Ctx) error {
	var req UpdateNodeDataRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.session(c, func(s *sessions.Session) error {
		return s.Editor.UpdateNodeData(c.Params("nodeId"), req.Data)
	})
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	return h.session(c, func(s *sessions.Session) error {
		return s.Editor.DeleteNode(c.Params("nodeId"))
	})
}

func (h *APIHandlers) MoveNode(c fiber.Ctx) error {
	var req MoveNodeRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.session(c, func(s *sessions.Session) error {
		return s.Editor.MoveNode(c.Params("nodeId"), req.X, req.Y)
	})
}

func (h *APIHandlers) SelectNode(c fiber.Ctx) error {
	return h.session(c, func(s *sessions.Session) error {
		return s.Editor.SelectNode(c.Params("nodeId"))
	})
}

func (h *APIHandlers) ClearSelection(c fiber.Ctx) error {
	return h.session(c, func(s *sessions.Session) error {
		return s.Editor.ClearSelection()
	})
}

func (h *APIHandlers) Connect(c fiber.Ctx) error {
	var req ConnectRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.session(c, func(s *sessions.Session) error {
		return s.Editor.Connect(req.Source, req.Target)
	})
}

func (h *APIHandlers) Disconnect(c fiber.Ctx) error {
	var req ConnectRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.session(c, func(s *sessions.Session) error {
		return s.Editor.Disconnect(req.Source, req.Target)
	})
}

// BeginWire starts dragging a wire from the source node's output port.
func (h *APIHandlers) BeginWire(c fiber.Ctx) error {
	var req WireStartRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.session(c, func(s *sessions.Session) error {
		return s.Editor.BeginConnection(req.Source)
	})
}

// FinishWire drops the pending wire on the target node's input port.
func (h *APIHandlers) FinishWire(c fiber.Ctx) error {
	var req WireFinishRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.session(c, func(s *sessions.Session) error {
		return s.Editor.FinishConnection(req.Target)
	})
}

func (h *APIHandlers) CancelWire(c fiber.Ctx) error {
	return h.session(c, func(s *sessions.Session) error {
		return s.Editor.CancelConnection()
	})
}

// SetViewport records the canvas pan and zoom used to place dropped nodes.
func (h *APIHandlers) SetViewport(c fiber.Ctx) error {
	var req ViewportRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.session(c, func(s *sessions.Session) error {
		return s.Editor.SetViewport(req.viewport())
	})
}

func (h *APIHandlers) ClearConnections(c fiber.Ctx) error {
	return h.session(c, func(s *sessions.Session) error {
		return s.Editor.ClearConnections()
	})
}

func (h *APIHandlers) SetMode(c fiber.Ctx) error {
	var req ModeRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return h.session(c, func(s *sessions.Session) error {
		return s.Editor.SetConnectionMode(bridge.ConnectionMode(req.Mode))
	})
}

func (h *APIHandlers) KeyDown(c fiber.Ctx) error {
	var req editor.KeyEvent
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	action, err := session.Editor.KeyDown(req)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(newHistoryResponse(session, action, action != editor.KeyActionNone))
}

func (h *APIHandlers) Undo(c fiber.Ctx) error {
	return h.replay(c, editor.KeyActionUndo)
}

func (h *APIHandlers) Redo(c fiber.Ctx) error {
	return h.replay(c, editor.KeyActionRedo)
}

func (h *APIHandlers) replay(c fiber.Ctx, action editor.KeyAction) error {
	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	var applied bool
	if action == editor.KeyActionUndo {
		applied, err = session.Editor.Undo()
	} else {
		applied, err = session.Editor.Redo()
	}

	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(newHistoryResponse(session, action, applied))
}

func (h *APIHandlers) Save(c fiber.Ctx) error {
	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	workflow, err := session.Save(c.Context())
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) Preview(c fiber.Ctx) error {
	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	svg, err := session.Preview(c.Context())
	if err != nil {
		return handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, svgContentType)

	return c.Send(svg)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "flowedit API is healthy"
	httpStatus := http.StatusOK
	repositoryCheck := "ok"

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "flowedit API is unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"sessions":  len(h.sessions.Sessions()),
		"timestamp": time.Now().UTC(),
	})
}
