// Package httpserver is the transport adapter: it converts HTTP bodies into
// JSON-RPC envelopes for the dispatcher and serializes responses back onto
// the wire. It is deliberately thin; all protocol decisions live in the
// dispatcher and session packages.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jamiat-it/tracker-mcp/pkg/dispatch"
	mcperrors "github.com/jamiat-it/tracker-mcp/pkg/errors"
	"github.com/jamiat-it/tracker-mcp/pkg/protocol"
	"github.com/jamiat-it/tracker-mcp/pkg/session"
)

// SessionHeader carries the session token between requests under the
// persistent lifecycle policy.
const SessionHeader = "Mcp-Session-Id"

// DefaultMaxBodySize bounds request bodies (1 MiB).
const DefaultMaxBodySize = 1 << 20

// Config holds the handler's collaborators.
type Config struct {
	// Dispatch is the dispatcher's (possibly middleware-wrapped) entry point.
	Dispatch dispatch.Func

	// Sessions owns session lifetimes.
	Sessions *session.Manager

	// ServerCapabilities seeds pre-ready stateless sessions.
	ServerCapabilities protocol.CapabilitySet

	Logger      *slog.Logger
	MaxBodySize int64
}

// Handler serves the MCP endpoint: POST for JSON-RPC messages, DELETE for
// session termination.
type Handler struct {
	dispatch    dispatch.Func
	sessions    *session.Manager
	serverCaps  protocol.CapabilitySet
	logger      *slog.Logger
	maxBodySize int64
}

// New creates the MCP endpoint handler.
func New(cfg Config) (*Handler, error) {
	if cfg.Dispatch == nil {
		return nil, errors.New("dispatch function is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session manager is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}

	return &Handler{
		dispatch:    cfg.Dispatch,
		sessions:    cfg.Sessions,
		serverCaps:  cfg.ServerCapabilities,
		logger:      logger,
		maxBodySize: maxBody,
	}, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handlePost processes one JSON-RPC message. Malformed envelopes fail before
// any session logic with a ParseError response; everything past parsing is
// delivered as a well-formed JSON-RPC response, never a bare HTTP failure.
func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodySize+1))
	if err != nil {
		h.writeResponse(r.Context(), w, mcperrors.ToResponse(mcperrors.ParseError(err), nil, false))
		return
	}
	if int64(len(body)) > h.maxBodySize {
		h.writeResponse(r.Context(), w,
			mcperrors.ToResponse(mcperrors.InvalidRequest("request body too large"), nil, false))
		return
	}

	req, err := protocol.ParseRequest(body)
	if err != nil {
		var id protocol.RequestID
		if req != nil {
			id = req.ID
		}
		h.writeResponse(r.Context(), w, mcperrors.ToResponse(mcperrors.ParseError(err), id, false))
		return
	}

	sess := h.sessions.Acquire(r.Header.Get(SessionHeader), h.serverCaps)
	defer h.sessions.Release(sess)

	resp := h.dispatch(r.Context(), sess, req)

	// Notifications produce no response body.
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	// Hand the client its token once the handshake has begun.
	if h.sessions.Policy() == session.PolicyPersistent && req.Method == protocol.MethodInitialize {
		w.Header().Set(SessionHeader, sess.ID())
	}

	h.writeResponse(r.Context(), w, resp)
}

// handleDelete terminates a persistent session.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(SessionHeader)
	if token == "" {
		http.Error(w, "Bad Request: missing "+SessionHeader, http.StatusBadRequest)
		return
	}
	if !h.sessions.Close(token) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeResponse serializes a response, dropping it when the client has
// already gone away rather than writing into a dead connection.
func (h *Handler) writeResponse(ctx context.Context, w http.ResponseWriter, resp *protocol.Response) {
	if ctx.Err() != nil {
		h.logger.Warn("client disconnected before response delivery",
			"id", string(resp.ID),
			"error", ctx.Err(),
		)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("response write failed", "error", err)
	}
}

// HealthHandler answers liveness probes.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})
}

// InfoHandler serves a friendly JSON page at the root: where the MCP
// endpoint lives and which tools it exposes. Paths other than "/" 404 so
// the catch-all pattern does not swallow typos.
func InfoHandler(info protocol.ServerInfo, mcpPath string, tools []string) http.Handler {
	if tools == nil {
		tools = []string{}
	}
	page := map[string]any{
		"server":       info.Name,
		"version":      info.Version,
		"status":       "running",
		"mcp_endpoint": mcpPath,
		"tools":        tools,
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	})
}
