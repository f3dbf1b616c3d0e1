package errors

import (
	"github.com/jamiat-it/tracker-mcp/pkg/protocol"
)

// ToProtocolError converts any error into a JSON-RPC error object. Handler
// failures are redacted to their generic message unless debug is set, in
// which case the cause is attached as error data. No error escapes this
// conversion: unknown error types become internal errors.
func ToProtocolError(err error, debug bool) *protocol.Error {
	if err == nil {
		return nil
	}

	mcpErr, ok := AsMCPError(err)
	if !ok {
		mcpErr = Wrap(err, CodeInternalError, "internal error", CategoryHandler)
	}

	pe := &protocol.Error{
		Code:    mcpErr.Code(),
		Message: mcpErr.Message(),
		Data:    mcpErr.Data(),
	}

	if debug && mcpErr.Category() == CategoryHandler {
		if cause := mcpErr.Unwrap(); cause != nil {
			pe.Data = map[string]any{"detail": cause.Error()}
		}
	}

	return pe
}

// ToResponse converts an error into a complete JSON-RPC error response for
// the given request id.
func ToResponse(err error, id protocol.RequestID, debug bool) *protocol.Response {
	pe := ToProtocolError(err, debug)
	return protocol.NewErrorResponse(id, pe.Code, pe.Message, pe.Data)
}
