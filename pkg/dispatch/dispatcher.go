// Package dispatch routes JSON-RPC requests to registry entries. The
// dispatcher is stateless across calls: all mutable state lives in the
// registry (read-only after startup) and in each request's session.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	mcperrors "github.com/jamiat-it/tracker-mcp/pkg/errors"
	"github.com/jamiat-it/tracker-mcp/pkg/protocol"
	"github.com/jamiat-it/tracker-mcp/pkg/registry"
	"github.com/jamiat-it/tracker-mcp/pkg/session"
)

// Func is the dispatch signature middleware composes around. A nil response
// means the request was a notification and nothing is written back.
type Func func(ctx context.Context, sess *session.Session, req *protocol.Request) *protocol.Response

// Middleware wraps a dispatch function with cross-cutting behavior.
type Middleware func(next Func) Func

// Dispatcher resolves methods against the registry, validates parameters,
// and packages handler results and failures as JSON-RPC responses.
type Dispatcher struct {
	registry       *registry.Registry
	serverInfo     protocol.ServerInfo
	capabilities   protocol.CapabilitySet
	logger         *slog.Logger
	debug          bool
	handlerTimeout time.Duration
	chain          []Middleware
	invokeObserver InvokeObserver
}

// InvokeObserver is called after every handler invocation with its duration,
// regardless of outcome. Used to feed per-operation metrics.
type InvokeObserver func(category registry.Category, name string, elapsed time.Duration)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithDebug exposes handler failure details in error data. Off by default
// so internal detail never leaks onto the wire.
func WithDebug(debug bool) Option {
	return func(d *Dispatcher) { d.debug = debug }
}

// WithHandlerTimeout bounds each handler invocation, converting deadline
// expiry into a HandlerTimeout error. Zero leaves handlers unbounded; the
// dispatcher itself imposes no timeout.
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.handlerTimeout = timeout }
}

// WithInvokeObserver registers a per-invocation duration callback.
func WithInvokeObserver(obs InvokeObserver) Option {
	return func(d *Dispatcher) { d.invokeObserver = obs }
}

// WithMiddleware appends dispatch middleware, outermost first.
func WithMiddleware(mw ...Middleware) Option {
	return func(d *Dispatcher) { d.chain = append(d.chain, mw...) }
}

// New creates a dispatcher advertising the given server identity and fixed
// capability set.
func New(reg *registry.Registry, info protocol.ServerInfo, caps protocol.CapabilitySet, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:     reg,
		serverInfo:   info,
		capabilities: caps.Clone(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Capabilities returns the server's fixed capability set.
func (d *Dispatcher) Capabilities() protocol.CapabilitySet {
	return d.capabilities.Clone()
}

// Handler returns the dispatch function with the middleware chain applied.
func (d *Dispatcher) Handler() Func {
	fn := d.Dispatch
	for i := len(d.chain) - 1; i >= 0; i-- {
		fn = d.chain[i](fn)
	}
	return fn
}

// Dispatch routes one request. Errors never propagate: every failure past
// envelope parsing is converted into an error response carrying the
// originating request id, and notifications absorb their failures into the
// log.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *session.Session, req *protocol.Request) *protocol.Response {
	result, err := d.route(ctx, sess, req)

	if req.IsNotification() {
		if err != nil {
			d.logger.Warn("notification failed",
				"method", req.Method,
				"session_id", sess.ID(),
				"error", err,
			)
		}
		return nil
	}

	if err != nil {
		d.logger.Debug("request failed",
			"method", req.Method,
			"session_id", sess.ID(),
			"code", errorCode(err),
			"error", err,
		)
		return mcperrors.ToResponse(err, req.ID, d.debug)
	}

	resp, merr := protocol.NewResponse(req.ID, result)
	if merr != nil {
		// The handler returned a value its own package cannot serialize.
		d.logger.Error("result serialization failed", "method", req.Method, "error", merr)
		return mcperrors.ToResponse(
			mcperrors.HandlerExecution(req.Method, merr), req.ID, d.debug)
	}
	return resp
}

// route performs steps 1-5 of dispatch and returns the raw handler result.
func (d *Dispatcher) route(ctx context.Context, sess *session.Session, req *protocol.Request) (any, error) {
	switch req.Method {
	case protocol.MethodInitialize:
		return d.handleInitialize(sess, req)

	case protocol.MethodInitialized, protocol.MethodInitializedLegacy:
		if err := sess.ConfirmInitialized(); err != nil {
			return nil, err
		}
		return struct{}{}, nil

	case protocol.MethodPing:
		// Allowed in every non-terminal state.
		if sess.State() == session.StateClosed {
			return nil, mcperrors.SessionClosed()
		}
		return protocol.PingResult{}, nil

	case protocol.MethodListTools:
		if err := sess.RequireReady(req.Method); err != nil {
			return nil, err
		}
		return d.listTools(), nil

	case protocol.MethodListResources:
		if err := sess.RequireReady(req.Method); err != nil {
			return nil, err
		}
		return d.listResources(), nil

	case protocol.MethodListPrompts:
		if err := sess.RequireReady(req.Method); err != nil {
			return nil, err
		}
		return d.listPrompts(), nil

	case protocol.MethodCallTool:
		return d.invokeKeyed(ctx, sess, req, registry.CategoryTool)

	case protocol.MethodReadResource:
		return d.invokeKeyed(ctx, sess, req, registry.CategoryResource)

	case protocol.MethodGetPrompt:
		return d.invokeKeyed(ctx, sess, req, registry.CategoryPrompt)

	default:
		// Gate before exposing which methods exist.
		if err := sess.RequireReady(req.Method); err != nil {
			return nil, err
		}
		return nil, mcperrors.MethodNotFound(req.Method)
	}
}

// handleInitialize runs the capability negotiation step. The server
// advertises its own fixed set regardless of the client's declaration.
func (d *Dispatcher) handleInitialize(sess *session.Session, req *protocol.Request) (any, error) {
	var params protocol.InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, mcperrors.InvalidParameter("params", "malformed initialize parameters")
		}
	}

	if err := sess.BeginNegotiation(d.capabilities, &params); err != nil {
		return nil, err
	}

	d.logger.Info("session negotiating",
		"session_id", sess.ID(),
		"client", clientName(params.ClientInfo),
	)

	return &protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolRevision,
		Capabilities:    d.capabilities.Clone(),
		ServerInfo:      d.serverInfo,
	}, nil
}

// invokeKeyed handles tools/call, resources/read, and prompts/get: resolve
// the named descriptor, validate the remaining parameters against its
// schema, and invoke the handler.
func (d *Dispatcher) invokeKeyed(ctx context.Context, sess *session.Session, req *protocol.Request, category registry.Category) (any, error) {
	if err := sess.RequireReady(req.Method); err != nil {
		return nil, err
	}

	name, args, err := splitParams(req.Params, category)
	if err != nil {
		return nil, err
	}

	desc, err := d.registry.Lookup(category, name)
	if err != nil {
		return nil, err
	}

	if err := desc.Schema.Validate(args); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return nil, mcperrors.HandlerExecution(req.Method, err)
	}

	return d.invoke(ctx, sess, desc, req.Method, raw)
}

// invoke runs the handler with panic containment and cooperative
// cancellation tied to the session. No lock is held across the invocation.
func (d *Dispatcher) invoke(ctx context.Context, sess *session.Session, desc *registry.Descriptor, method string, args json.RawMessage) (result any, err error) {
	var hctx context.Context
	var cancel context.CancelFunc
	if d.handlerTimeout > 0 {
		hctx, cancel = context.WithTimeout(ctx, d.handlerTimeout)
	} else {
		hctx, cancel = context.WithCancel(ctx)
	}
	release := sess.TrackRequest(cancel)
	start := time.Now()
	defer func() {
		release()
		cancel()
		if d.invokeObserver != nil {
			d.invokeObserver(desc.Category, desc.Name, time.Since(start))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked",
				"method", method,
				"name", desc.Name,
				"panic", r,
			)
			result, err = nil, mcperrors.HandlerPanic(method, r)
		}
	}()

	result, err = desc.Handler(hctx, args)
	if err != nil {
		if hctx.Err() == context.DeadlineExceeded && d.handlerTimeout > 0 {
			return nil, mcperrors.HandlerTimeout(method, d.handlerTimeout.String())
		}
		if _, ok := mcperrors.AsMCPError(err); ok {
			return nil, err
		}
		return nil, mcperrors.HandlerExecution(method, err)
	}
	return result, nil
}

// splitParams separates the identifying key from the remaining parameters.
// Resources are keyed by uri, tools and prompts by name.
func splitParams(raw json.RawMessage, category registry.Category) (string, map[string]any, error) {
	params := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return "", nil, mcperrors.InvalidParameter("params", "expected object")
		}
	}

	keyField := "name"
	if category == registry.CategoryResource {
		keyField = "uri"
		if _, ok := params[keyField]; !ok {
			// Accept name as an alias for transports that key resources
			// the same way as tools.
			if _, ok := params["name"]; ok {
				keyField = "name"
			}
		}
	}

	v, ok := params[keyField]
	if !ok {
		return "", nil, mcperrors.MissingParameter(keyField)
	}
	name, ok := v.(string)
	if !ok || name == "" {
		return "", nil, mcperrors.InvalidParameter(keyField, "expected non-empty string")
	}
	delete(params, keyField)

	return name, params, nil
}

// listTools projects tool descriptors to their wire shape. Handlers are not
// invoked; two calls without registry mutation yield identical output.
func (d *Dispatcher) listTools() *protocol.ListToolsResult {
	descs := d.registry.List(registry.CategoryTool)
	tools := make([]protocol.Tool, 0, len(descs))
	for _, desc := range descs {
		tools = append(tools, protocol.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: desc.Schema.MarshalRaw(),
		})
	}
	return &protocol.ListToolsResult{Tools: tools}
}

func (d *Dispatcher) listResources() *protocol.ListResourcesResult {
	descs := d.registry.List(registry.CategoryResource)
	resources := make([]protocol.Resource, 0, len(descs))
	for _, desc := range descs {
		resources = append(resources, protocol.Resource{
			URI:         desc.Name,
			Name:        desc.Title,
			Description: desc.Description,
			MimeType:    desc.MimeType,
		})
	}
	return &protocol.ListResourcesResult{Resources: resources}
}

func (d *Dispatcher) listPrompts() *protocol.ListPromptsResult {
	descs := d.registry.List(registry.CategoryPrompt)
	prompts := make([]protocol.Prompt, 0, len(descs))
	for _, desc := range descs {
		prompts = append(prompts, protocol.Prompt{
			Name:        desc.Name,
			Description: desc.Description,
			Arguments:   desc.Schema.MarshalRaw(),
		})
	}
	return &protocol.ListPromptsResult{Prompts: prompts}
}

func errorCode(err error) int {
	if mcpErr, ok := mcperrors.AsMCPError(err); ok {
		return mcpErr.Code()
	}
	return mcperrors.CodeInternalError
}

func clientName(info *protocol.ClientInfo) string {
	if info == nil {
		return "unknown"
	}
	return info.Name
}
