package web

import (
	"errors"

	"github.com/dukex/flowedit/pkg/bridge"
	"github.com/dukex/flowedit/pkg/canvas"
	"github.com/dukex/flowedit/pkg/editor"
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/palette"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/dukex/flowedit/pkg/sessions"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleError maps persistence, session and editor errors to problem responses.
func handleError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsWorkflowNotFound(err):
		return problem(c, fiber.StatusNotFound, "workflow_not_found", "workflow not found")

	case sessions.IsSessionNotFound(err):
		return problem(c, fiber.StatusNotFound, "session_not_found", "session not found")

	case bridge.IsNodeNotFound(err):
		return problem(c, fiber.StatusNotFound, "node_not_found", "node not found")

	case errors.Is(err, canvas.ErrConnectionNotFound):
		return problem(c, fiber.StatusNotFound, "connection_not_found", "connection not found")

	case errors.Is(err, bridge.ErrConnectionsLocked):
		return problem(c, fiber.StatusConflict, "connections_locked", err.Error())

	case errors.Is(err, bridge.ErrNoPendingConnection):
		return problem(c, fiber.StatusConflict, "no_pending_connection", err.Error())

	case errors.Is(err, persistence.ErrInvalidID),
		errors.Is(err, editor.ErrEmptyDropPayload),
		errors.Is(err, palette.ErrUnknownNodeType),
		errors.Is(err, bridge.ErrInvalidMode),
		errors.Is(err, graph.ErrMalformedFlowData),
		errors.Is(err, graph.ErrInvalidNode),
		graph.IsDanglingEdge(err),
		graph.IsDuplicateID(err):
		return badRequest(c, err.Error())

	case errors.Is(err, editor.ErrUnmounted):
		return problem(c, fiber.StatusGone, "session_closed", err.Error())

	case editor.IsUnavailable(err):
		return problem(c, fiber.StatusServiceUnavailable, "canvas_unavailable", err.Error())

	default:
		return internalError(c, err)
	}
}
