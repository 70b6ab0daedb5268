package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/metrics"
	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/persistence/file"
	"github.com/dukex/flowedit/pkg/sessions"
	"github.com/dukex/flowedit/pkg/testutil"
	"github.com/dukex/flowedit/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type problemBody struct {
	Type   string `json:"type"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := sessions.NewManager(store, nil, sessions.WithMetrics(metrics.NewNop()), sessions.WithLogger(logger))

	t.Cleanup(func() {
		_ = manager.CloseAll()
	})

	handlers := web.NewAPIHandlers(store, manager, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	handlers.Register(app)
	app.Get("/health", handlers.HealthCheck)

	return app, store
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))

	return v
}

func createWorkflow(t *testing.T, app *fiber.App, doc graph.Document) models.Workflow {
	t.Helper()

	flowData, err := graph.Marshal(doc)
	require.NoError(t, err)

	resp, raw := doRequest(t, app, http.MethodPost, "/workflows", web.CreateWorkflowRequest{
		Name:     "Support bot",
		Type:     "AGENTFLOW",
		FlowData: flowData,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	return decode[models.Workflow](t, raw)
}

func openSession(t *testing.T, app *fiber.App, workflowID string) web.SessionResponse {
	t.Helper()

	resp, raw := doRequest(t, app, http.MethodPost, "/workflows/"+workflowID+"/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	return decode[web.SessionResponse](t, raw)
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	t.Parallel()

	chain, err := graph.Marshal(testutil.CreateTestChain("a", "b"))
	require.NoError(t, err)

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedError  string
		validateResult func(t *testing.T, workflow models.Workflow)
	}{
		{
			name:           "successful creation",
			requestBody:    web.CreateWorkflowRequest{Name: "Support bot", Type: "CHATFLOW", FlowData: chain},
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, workflow models.Workflow) {
				t.Helper()
				assert.NotEmpty(t, workflow.ID)
				assert.Equal(t, models.WorkflowTypeChatflow, workflow.Type)
				assert.Equal(t, 2, workflow.NodeCount)
				assert.Equal(t, 1, workflow.EdgeCount)
				assert.Equal(t, chain, workflow.FlowData)
			},
		},
		{
			name:           "empty flow data",
			requestBody:    web.CreateWorkflowRequest{Name: "Blank"},
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, workflow models.Workflow) {
				t.Helper()
				assert.Equal(t, `{"nodes":[],"edges":[]}`, workflow.FlowData)
				assert.Zero(t, workflow.ComplexityScore)
			},
		},
		{
			name:           "validation error - missing name",
			requestBody:    web.CreateWorkflowRequest{},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Name",
		},
		{
			name:           "validation error - unknown type",
			requestBody:    web.CreateWorkflowRequest{Name: "Support bot", Type: "BATCH"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Type",
		},
		{
			name:           "malformed flow data",
			requestBody:    web.CreateWorkflowRequest{Name: "Support bot", FlowData: `{"nodes": [`},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "malformed flow data",
		},
		{
			name: "dangling edge",
			requestBody: web.CreateWorkflowRequest{
				Name:     "Support bot",
				FlowData: `{"nodes":[{"id":"a","type":"Agent","position":{"x":0,"y":0},"data":{}}],"edges":[{"source":"a","target":"b"}]}`,
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "dangling edge",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			resp, raw := doRequest(t, app, http.MethodPost, "/workflows", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(raw))

			if tt.expectedError != "" {
				problem := decode[problemBody](t, raw)
				assert.Equal(t, "validation_error", problem.Type)
				assert.Contains(t, problem.Detail, tt.expectedError)
			}

			if tt.validateResult != nil {
				tt.validateResult(t, decode[models.Workflow](t, raw))
			}
		})
	}
}

func TestAPIHandlers_CreateWorkflow_InvalidJSON(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/workflows", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_WorkflowCRUD(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	created := createWorkflow(t, app, testutil.CreateTestChain("a"))

	resp, raw := doRequest(t, app, http.MethodGet, "/workflows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Workflow](t, raw), 1)

	resp, raw = doRequest(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Support bot", decode[models.Workflow](t, raw).Name)

	name := "Support bot v2"
	resp, raw = doRequest(t, app, http.MethodPatch, "/workflows/"+created.ID, web.UpdateWorkflowRequest{Name: &name})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	updated := decode[models.Workflow](t, raw)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, created.FlowData, updated.FlowData)

	short := "ab"
	resp, _ = doRequest(t, app, http.MethodPatch, "/workflows/"+created.ID, web.UpdateWorkflowRequest{Name: &short})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = doRequest(t, app, http.MethodGet, "/workflows/"+created.ID+"/preview", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(raw), "<svg")

	resp, _ = doRequest(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, raw = doRequest(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "workflow_not_found", decode[problemBody](t, raw).Type)

	resp, _ = doRequest(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_EditingSession(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)
	workflow := createWorkflow(t, app, testutil.CreateTestChain("a"))

	session := openSession(t, app, workflow.ID)
	assert.Len(t, session.Document.Nodes, 1)
	assert.False(t, session.CanUndo)

	base := "/sessions/" + session.ID

	resp, raw := doRequest(t, app, http.MethodPost, base+"/drop", web.DropRequest{NodeType: "Tool", ClientX: 300, ClientY: 200})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	tool := decode[graph.Node](t, raw)
	assert.Equal(t, graph.NodeTypeTool, tool.Type)
	assert.Equal(t, "Tool", tool.Label())

	resp, raw = doRequest(t, app, http.MethodPost, base+"/connections", web.ConnectRequest{Source: "a", Target: tool.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	state := decode[web.SessionResponse](t, raw)
	assert.Equal(t, []graph.Edge{{Source: "a", Target: tool.ID}}, state.Document.Edges)
	assert.True(t, state.CanUndo)

	resp, raw = doRequest(t, app, http.MethodPost, base+"/undo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	undo := decode[web.HistoryResponse](t, raw)
	assert.True(t, undo.Applied)
	assert.True(t, undo.CanRedo)

	resp, raw = doRequest(t, app, http.MethodPost, base+"/keys", map[string]any{"key": "z", "ctrl": true, "shift": true})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, web.HistoryResponse{Action: "redo", Applied: true, CanUndo: true}, decode[web.HistoryResponse](t, raw))

	resp, raw = doRequest(t, app, http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	saved := decode[models.Workflow](t, raw)
	assert.Equal(t, 2, saved.NodeCount)
	assert.Equal(t, 1, saved.EdgeCount)

	stored, err := store.WorkflowByID(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.FlowData, stored.FlowData)

	resp, raw = doRequest(t, app, http.MethodGet, base+"/preview", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "<svg")

	resp, _ = doRequest(t, app, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, raw = doRequest(t, app, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session_not_found", decode[problemBody](t, raw).Type)
}

func TestAPIHandlers_NodeOperations(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	workflow := createWorkflow(t, app, testutil.CreateTestChain("a", "b"))
	base := "/sessions/" + openSession(t, app, workflow.ID).ID

	resp, raw := doRequest(t, app, http.MethodPost, base+"/nodes", web.AddNodeRequest{Type: "Start"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	start := decode[graph.Node](t, raw)
	assert.Equal(t, graph.Position{X: 100, Y: 100}, start.Position)

	resp, raw = doRequest(t, app, http.MethodPost, base+"/nodes/a/duplicate", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	assert.Equal(t, "a (cópia)", decode[graph.Node](t, raw).Label())

	resp, raw = doRequest(t, app, http.MethodPut, base+"/nodes/a/position", web.MoveNodeRequest{X: 10, Y: 20})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = doRequest(t, app, http.MethodPatch, base+"/nodes/a", web.UpdateNodeDataRequest{Data: map[string]any{"label": "Router"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = doRequest(t, app, http.MethodGet, base+"/nodes/a", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	node := decode[graph.Node](t, raw)
	assert.Equal(t, graph.Position{X: 10, Y: 20}, node.Position)
	assert.Equal(t, "Router", node.Label())

	resp, raw = doRequest(t, app, http.MethodPost, base+"/nodes/b/edit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "b", decode[graph.Node](t, raw).ID)

	resp, raw = doRequest(t, app, http.MethodPost, base+"/nodes/b/select", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "b", decode[web.SessionResponse](t, raw).Selected)

	resp, raw = doRequest(t, app, http.MethodPost, base+"/keys", editorKey("Delete"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "delete", string(decode[web.HistoryResponse](t, raw).Action))

	resp, raw = doRequest(t, app, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state := decode[web.SessionResponse](t, raw)
	assert.Empty(t, state.Selected)
	assert.Empty(t, state.Document.Edges)

	_, ok := state.Document.Node("b")
	assert.False(t, ok)

	resp, raw = doRequest(t, app, http.MethodDelete, base+"/nodes/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "node_not_found", decode[problemBody](t, raw).Type)

	resp, raw = doRequest(t, app, http.MethodDelete, base+"/nodes/a", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, ok = decode[web.SessionResponse](t, raw).Document.Node("a")
	assert.False(t, ok)
}

func editorKey(key string) map[string]any {
	return map[string]any{"key": key}
}

func TestAPIHandlers_ConnectionModeAndErrors(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	workflow := createWorkflow(t, app, testutil.CreateTestChain("a", "b"))
	base := "/sessions/" + openSession(t, app, workflow.ID).ID

	resp, raw := doRequest(t, app, http.MethodPut, base+"/mode", web.ModeRequest{Mode: "view"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "view", string(decode[web.SessionResponse](t, raw).Mode))

	resp, raw = doRequest(t, app, http.MethodPost, base+"/connections", web.ConnectRequest{Source: "b", Target: "a"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "connections_locked", decode[problemBody](t, raw).Type)

	resp, _ = doRequest(t, app, http.MethodPut, base+"/mode", web.ModeRequest{Mode: "draw"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = doRequest(t, app, http.MethodPost, base+"/drop", web.DropRequest{NodeType: "Webhook"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[problemBody](t, raw).Detail, "unknown node type")

	resp, _ = doRequest(t, app, http.MethodPost, base+"/drop", web.DropRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = doRequest(t, app, http.MethodDelete, base+"/connections/all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[web.SessionResponse](t, raw).Document.Edges)

	resp, raw = doRequest(t, app, http.MethodPost, base+"/redo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[web.HistoryResponse](t, raw).Applied)

	resp, _ = doRequest(t, app, http.MethodPost, "/workflows/missing/sessions", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_DisconnectAndWire(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	workflow := createWorkflow(t, app, testutil.CreateTestChain("a", "b", "c"))
	base := "/sessions/" + openSession(t, app, workflow.ID).ID

	resp, raw := doRequest(t, app, http.MethodDelete, base+"/connections", web.ConnectRequest{Source: "a", Target: "b"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, []graph.Edge{{Source: "b", Target: "c"}}, decode[web.SessionResponse](t, raw).Document.Edges)

	resp, raw = doRequest(t, app, http.MethodDelete, base+"/connections", web.ConnectRequest{Source: "a", Target: "b"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "connection_not_found", decode[problemBody](t, raw).Type)

	resp, _ = doRequest(t, app, http.MethodDelete, base+"/connections", web.ConnectRequest{Source: "a"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = doRequest(t, app, http.MethodPost, base+"/wire", web.WireStartRequest{Source: "c"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = doRequest(t, app, http.MethodPost, base+"/wire/finish", web.WireFinishRequest{Target: "a"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	state := decode[web.SessionResponse](t, raw)
	assert.ElementsMatch(t, []graph.Edge{{Source: "b", Target: "c"}, {Source: "c", Target: "a"}}, state.Document.Edges)
	assert.True(t, state.CanUndo)

	resp, raw = doRequest(t, app, http.MethodPost, base+"/wire/finish", web.WireFinishRequest{Target: "b"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "no_pending_connection", decode[problemBody](t, raw).Type)

	resp, _ = doRequest(t, app, http.MethodPost, base+"/wire", web.WireStartRequest{Source: "a"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodDelete, base+"/wire", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodPost, base+"/wire/finish", web.WireFinishRequest{Target: "b"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, raw = doRequest(t, app, http.MethodPost, base+"/wire", web.WireStartRequest{Source: "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "node_not_found", decode[problemBody](t, raw).Type)
}

func TestAPIHandlers_ViewportPlacesDrops(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	workflow := createWorkflow(t, app, testutil.CreateTestChain("a"))
	session := openSession(t, app, workflow.ID)
	assert.InDelta(t, 1, session.Viewport.Zoom, 0)

	base := "/sessions/" + session.ID

	resp, raw := doRequest(t, app, http.MethodPut, base+"/viewport", web.ViewportRequest{OriginX: 50, OriginY: 20, Zoom: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, web.ViewportResponse{OriginX: 50, OriginY: 20, Zoom: 2}, decode[web.SessionResponse](t, raw).Viewport)

	resp, raw = doRequest(t, app, http.MethodPost, base+"/drop", web.DropRequest{NodeType: "Tool", ClientX: 250, ClientY: 220})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	assert.Equal(t, graph.Position{X: 100, Y: 100}, decode[graph.Node](t, raw).Position)

	resp, _ = doRequest(t, app, http.MethodPut, base+"/viewport", web.ViewportRequest{Zoom: -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, raw := doRequest(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	body := decode[map[string]any](t, raw)
	assert.Equal(t, "healthy", body["status"])
}
