package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	// JSONRPCVersion is the only supported JSON-RPC version.
	JSONRPCVersion = "2.0"
)

// JSONRPCMessage carries the version marker common to every wire message.
type JSONRPCMessage struct {
	JSONRPC string `json:"jsonrpc"`
}

// RequestID is the raw correlation token of a request. It is kept as the
// bytes the client sent (string or number) so responses echo it exactly.
type RequestID = json.RawMessage

// Request represents a JSON-RPC 2.0 request. A request without an ID is a
// notification and must not produce a response.
type Request struct {
	JSONRPCMessage
	ID     RequestID       `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no usable ID.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || bytes.Equal(r.ID, []byte("null"))
}

// NewRequest creates a new JSON-RPC 2.0 request.
func NewRequest(id RequestID, method string, params any) (*Request, error) {
	var paramsJSON json.RawMessage
	if params != nil {
		var err error
		paramsJSON, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
	}

	return &Request{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Method:         method,
		Params:         paramsJSON,
	}, nil
}

// Response represents a JSON-RPC 2.0 response. Exactly one of Result and
// Error is set.
type Response struct {
	JSONRPCMessage
	ID     RequestID       `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// NewResponse creates a new JSON-RPC 2.0 success response.
func NewResponse(id RequestID, result any) (*Response, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &Response{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             normalizeID(id),
		Result:         resultJSON,
	}, nil
}

// NewErrorResponse creates a new JSON-RPC 2.0 error response. A nil id is
// serialized as null, the convention for requests whose id could not be
// parsed.
func NewErrorResponse(id RequestID, code int, message string, data any) *Response {
	return &Response{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             normalizeID(id),
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// normalizeID maps an absent request id to an explicit null so the id field
// is always present on responses.
func normalizeID(id RequestID) RequestID {
	if len(id) == 0 {
		return RequestID("null")
	}
	return id
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("rpc error: code = %d desc = %s", e.Code, e.Message)
}

// ParseRequest decodes a raw wire message into a Request, enforcing the
// envelope invariants (version marker, non-empty method).
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if req.JSONRPC != JSONRPCVersion {
		return &req, fmt.Errorf("unsupported jsonrpc version %q", req.JSONRPC)
	}
	if req.Method == "" {
		return &req, fmt.Errorf("missing method")
	}
	return &req, nil
}
