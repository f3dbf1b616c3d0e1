package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/jamiat-it/tracker-mcp/pkg/errors"
	"github.com/jamiat-it/tracker-mcp/pkg/dispatch"
	"github.com/jamiat-it/tracker-mcp/pkg/protocol"
	"github.com/jamiat-it/tracker-mcp/pkg/registry"
	"github.com/jamiat-it/tracker-mcp/pkg/session"
)

var testCaps = protocol.CapabilitySet{"tools": true}

type echoArgs struct {
	Value string `json:"value"`
}

func newTestHandler(t *testing.T, policy session.Policy, preReady bool) (*Handler, *session.Manager) {
	t.Helper()

	reg := registry.New()
	reg.MustRegister(registry.NewTool("echo", "echoes value back",
		func(_ context.Context, args echoArgs) (any, error) {
			return args.Value, nil
		}))

	d := dispatch.New(reg, protocol.ServerInfo{Name: "jamiat-tracker", Version: "test"}, testCaps)
	manager := session.NewManager(session.Config{Policy: policy, PreReady: preReady})
	t.Cleanup(manager.Shutdown)

	h, err := New(Config{
		Dispatch:           d.Handler(),
		Sessions:           manager,
		ServerCapabilities: d.Capabilities(),
	})
	require.NoError(t, err)
	return h, manager
}

func post(t *testing.T, h *Handler, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) *protocol.Response {
	t.Helper()
	var resp protocol.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return &resp
}

func TestPersistentSessionFlow(t *testing.T) {
	h, _ := newTestHandler(t, session.PolicyPersistent, false)

	// A call before the handshake fails with NotInitialized.
	rec := post(t, h, "", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","value":"hi"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperrors.CodeNotInitialized, resp.Error.Code)

	// Initialize hands back the session token in the header.
	rec = post(t, h, "", `{"jsonrpc":"2.0","id":2,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"tester","version":"0.1"}}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get(SessionHeader)
	require.NotEmpty(t, token)
	resp = decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	// The initialized notification is accepted with no body.
	rec = post(t, h, token, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())

	// Ready: the echo result passes through verbatim.
	rec = post(t, h, token, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","value":"hi"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":3,"result":"hi"}`, rec.Body.String())
}

func TestStatelessPreReadyFlow(t *testing.T) {
	h, _ := newTestHandler(t, session.PolicyStateless, true)

	// No handshake, no token: every request gets a fresh ready session.
	rec := post(t, h, "", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","value":"hi"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":"hi"}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get(SessionHeader))
}

func TestStatelessPreReadyAcceptsHandshake(t *testing.T) {
	h, _ := newTestHandler(t, session.PolicyStateless, true)

	// A conforming client still opens with initialize; stateless pre-ready
	// deployments answer it with the capability set instead of rejecting it.
	rec := post(t, h, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"tester","version":"0.1"}}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	var result protocol.InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, protocol.ProtocolRevision, result.ProtocolVersion)
	assert.True(t, result.Capabilities.Has("tools"))

	rec = post(t, h, "", `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = post(t, h, "", `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","value":"hi"}}`)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":2,"result":"hi"}`, rec.Body.String())
}

func TestParseErrorEchoesNullID(t *testing.T) {
	h, _ := newTestHandler(t, session.PolicyStateless, true)

	rec := post(t, h, "", `{this is not json`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"parse error"}}`, rec.Body.String())
}

func TestEnvelopeViolations(t *testing.T) {
	h, _ := newTestHandler(t, session.PolicyStateless, true)

	t.Run("wrong version keeps the parsed id", func(t *testing.T) {
		rec := post(t, h, "", `{"jsonrpc":"1.0","id":9,"method":"ping"}`)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, mcperrors.CodeParseError, resp.Error.Code)
		assert.Equal(t, "9", string(resp.ID))
	})

	t.Run("missing method", func(t *testing.T) {
		rec := post(t, h, "", `{"jsonrpc":"2.0","id":1}`)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, mcperrors.CodeParseError, resp.Error.Code)
	})
}

func TestBodyTooLarge(t *testing.T) {
	reg := registry.New()
	d := dispatch.New(reg, protocol.ServerInfo{Name: "t", Version: "t"}, testCaps)
	manager := session.NewManager(session.Config{Policy: session.PolicyStateless})
	t.Cleanup(manager.Shutdown)

	h, err := New(Config{Dispatch: d.Handler(), Sessions: manager, MaxBodySize: 64})
	require.NoError(t, err)

	rec := post(t, h, "", `{"jsonrpc":"2.0","id":1,"method":"ping","params":{"pad":"`+strings.Repeat("x", 128)+`"}}`)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperrors.CodeInvalidRequest, resp.Error.Code)
}

func TestDeleteTerminatesSession(t *testing.T) {
	h, manager := newTestHandler(t, session.PolicyPersistent, false)

	rec := post(t, h, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	token := rec.Header().Get(SessionHeader)
	require.NotEmpty(t, token)
	require.Equal(t, 1, manager.Count())

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
		del := httptest.NewRecorder()
		h.ServeHTTP(del, req)
		assert.Equal(t, http.StatusBadRequest, del.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
		req.Header.Set(SessionHeader, "no-such-session")
		del := httptest.NewRecorder()
		h.ServeHTTP(del, req)
		assert.Equal(t, http.StatusNotFound, del.Code)
	})

	t.Run("known token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
		req.Header.Set(SessionHeader, token)
		del := httptest.NewRecorder()
		h.ServeHTTP(del, req)
		assert.Equal(t, http.StatusNoContent, del.Code)
		assert.Equal(t, 0, manager.Count())
	})

	// A stale token now resolves to a fresh, uninitialized session.
	rec = post(t, h, token, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperrors.CodeNotInitialized, resp.Error.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t, session.PolicyStateless, true)

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST, DELETE", rec.Header().Get("Allow"))
}

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	HealthHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestInfoHandler(t *testing.T) {
	h := InfoHandler(protocol.ServerInfo{Name: "jamiat-tracker", Version: "1.0.0"}, "/mcp", []string{"get_project", "list_projects"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"server": "jamiat-tracker",
		"version": "1.0.0",
		"status": "running",
		"mcp_endpoint": "/mcp",
		"tools": ["get_project", "list_projects"]
	}`, rec.Body.String())

	t.Run("other paths are not swallowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	manager := session.NewManager(session.Config{Policy: session.PolicyStateless})
	t.Cleanup(manager.Shutdown)
	_, err = New(Config{Sessions: manager})
	assert.Error(t, err)
}
