package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamiat-it/tracker-mcp/pkg/catalog"
	"github.com/jamiat-it/tracker-mcp/pkg/dispatch"
	mcperrors "github.com/jamiat-it/tracker-mcp/pkg/errors"
	"github.com/jamiat-it/tracker-mcp/pkg/httpserver"
	"github.com/jamiat-it/tracker-mcp/pkg/protocol"
	"github.com/jamiat-it/tracker-mcp/pkg/registry"
	"github.com/jamiat-it/tracker-mcp/pkg/session"
	"github.com/jamiat-it/tracker-mcp/pkg/tracker"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	reg := registry.New()
	require.NoError(t, tracker.Register(reg, catalog.NewStaticStore(catalog.SeedProjects())))

	caps := protocol.CapabilitySet{"tools": true, "resources": true, "prompts": true}
	d := dispatch.New(reg, protocol.ServerInfo{Name: "jamiat-tracker", Version: "test"}, caps)

	manager := session.NewManager(session.Config{Policy: session.PolicyPersistent})
	t.Cleanup(manager.Shutdown)

	h, err := httpserver.New(httpserver.Config{
		Dispatch:           d.Handler(),
		Sessions:           manager,
		ServerCapabilities: d.Capabilities(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL, WithHTTPClient(srv.Client()))
	ctx := context.Background()

	result, err := c.Connect(ctx, protocol.ClientInfo{Name: "client-test", Version: "0.1"})
	require.NoError(t, err)
	assert.Equal(t, "jamiat-tracker", result.ServerInfo.Name)
	assert.True(t, c.HasCapability("tools"))

	require.NoError(t, c.Ping(ctx))

	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 4)
	assert.Equal(t, "get_project", tools.Tools[0].Name)

	out, err := c.CallTool(ctx, "get_project", map[string]any{"project_id": "jamiat"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "Jamiat")

	out, err = c.CallTool(ctx, "get_total_cost", nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Total: $125/mo")

	res, err := c.ReadResource(ctx, tracker.ProjectsResourceURI)
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MimeType)

	prompt, err := c.GetPrompt(ctx, "monthly_report", nil)
	require.NoError(t, err)
	require.Len(t, prompt.Messages, 1)

	require.NoError(t, c.Close(ctx))
}

func TestClientSurfacesRPCErrors(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL, WithHTTPClient(srv.Client()))
	ctx := context.Background()

	// Before the handshake the server rejects feature methods.
	_, err := c.ListTools(ctx)
	var rpcErr *protocol.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, mcperrors.CodeNotInitialized, rpcErr.Code)

	_, err = c.Connect(ctx, protocol.ClientInfo{Name: "client-test", Version: "0.1"})
	require.NoError(t, err)

	_, err = c.CallTool(ctx, "no_such_tool", nil)
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, mcperrors.CodeNotFound, rpcErr.Code)

	_, err = c.CallTool(ctx, "get_project", nil)
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, mcperrors.CodeInvalidParams, rpcErr.Code)
	assert.Contains(t, rpcErr.Message, "project_id")
}

func TestClientCloseWithoutSessionIsNoop(t *testing.T) {
	c := New("http://127.0.0.1:1") // never dialed
	assert.NoError(t, c.Close(context.Background()))
}
