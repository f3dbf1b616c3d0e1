// Package client provides a small HTTP client for the tracker MCP endpoint,
// covering the handshake and the keyed feature operations. It is used by the
// quickstart example and by integration tests; production MCP hosts bring
// their own client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/jamiat-it/tracker-mcp/pkg/protocol"
)

// SessionHeader carries the session token on every request after initialize.
const SessionHeader = "Mcp-Session-Id"

// Client talks JSON-RPC over HTTP to one MCP endpoint. It is safe for
// concurrent use after Connect.
type Client struct {
	endpoint string
	http     *http.Client

	nextID atomic.Int64

	mu        sync.RWMutex
	sessionID string
	caps      protocol.CapabilitySet
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for an MCP endpoint URL such as
// "http://localhost:8000/mcp".
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect performs the initialize handshake and confirms it with the
// initialized notification. The session token handed back by the server, if
// any, is attached to every subsequent request.
func (c *Client) Connect(ctx context.Context, info protocol.ClientInfo) (*protocol.InitializeResult, error) {
	params := protocol.InitializeParams{
		ProtocolVersion: protocol.ProtocolRevision,
		ClientInfo:      &info,
	}

	var result protocol.InitializeResult
	if err := c.call(ctx, protocol.MethodInitialize, params, &result); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.caps = result.Capabilities.Clone()
	c.mu.Unlock()

	if err := c.notify(ctx, protocol.MethodInitialized); err != nil {
		return nil, fmt.Errorf("initialized notification: %w", err)
	}
	return &result, nil
}

// HasCapability reports whether the server advertised a capability during
// the handshake.
func (c *Client) HasCapability(capability protocol.CapabilityType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps.Has(capability)
}

// Ping checks liveness of the endpoint.
func (c *Client) Ping(ctx context.Context) error {
	var result protocol.PingResult
	return c.call(ctx, protocol.MethodPing, nil, &result)
}

// ListTools returns the server's tool listing.
func (c *Client) ListTools(ctx context.Context) (*protocol.ListToolsResult, error) {
	var result protocol.ListToolsResult
	if err := c.call(ctx, protocol.MethodListTools, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResources returns the server's resource listing.
func (c *Client) ListResources(ctx context.Context) (*protocol.ListResourcesResult, error) {
	var result protocol.ListResourcesResult
	if err := c.call(ctx, protocol.MethodListResources, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListPrompts returns the server's prompt listing.
func (c *Client) ListPrompts(ctx context.Context) (*protocol.ListPromptsResult, error) {
	var result protocol.ListPromptsResult
	if err := c.call(ctx, protocol.MethodListPrompts, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CallTool invokes a named tool. The arguments ride flat alongside the name
// and the handler's result comes back verbatim.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	params := make(map[string]any, len(args)+1)
	for k, v := range args {
		params[k] = v
	}
	params["name"] = name

	var result json.RawMessage
	if err := c.call(ctx, protocol.MethodCallTool, params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ReadResource fetches a resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	var result protocol.ReadResourceResult
	if err := c.call(ctx, protocol.MethodReadResource, map[string]any{"uri": uri}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPrompt renders a prompt template.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]any) (*protocol.GetPromptResult, error) {
	params := make(map[string]any, len(args)+1)
	for k, v := range args {
		params[k] = v
	}
	params["name"] = name

	var result protocol.GetPromptResult
	if err := c.call(ctx, protocol.MethodGetPrompt, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Close terminates the server-side session. A no-op when the server never
// issued a token (stateless deployments).
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	token := c.sessionID
	c.sessionID = ""
	c.mu.Unlock()

	if token == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set(SessionHeader, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("session delete failed: %s", resp.Status)
	}
	return nil
}

// call sends one request and decodes its result into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	id := protocol.RequestID(strconv.FormatInt(c.nextID.Add(1), 10))
	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return err
	}

	body, status, header, err := c.post(ctx, req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status %d for %s", status, method)
	}

	// The server hands the session token back on initialize.
	if token := header.Get(SessionHeader); token != "" {
		c.mu.Lock()
		c.sessionID = token
		c.mu.Unlock()
	}

	var resp protocol.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("malformed response for %s: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("malformed result for %s: %w", method, err)
		}
	}
	return nil
}

// notify sends a notification and expects no response body.
func (c *Client) notify(ctx context.Context, method string) error {
	req, err := protocol.NewRequest(nil, method, nil)
	if err != nil {
		return err
	}

	_, status, _, err := c.post(ctx, req)
	if err != nil {
		return err
	}
	if status != http.StatusAccepted {
		return fmt.Errorf("unexpected HTTP status %d for notification %s", status, method)
	}
	return nil
}

func (c *Client) post(ctx context.Context, req *protocol.Request) ([]byte, int, http.Header, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, 0, nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	if c.sessionID != "" {
		httpReq.Header.Set(SessionHeader, c.sessionID)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, nil, err
	}
	return body, resp.StatusCode, resp.Header, nil
}
