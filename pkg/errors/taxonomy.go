package errors

import (
	"fmt"
)

// ValidationData names the parameter a schema mismatch was detected on.
type ValidationData struct {
	Field  string `json:"field"`
	Reason string `json:"reason,omitempty"`
}

// NotFoundData identifies the registry miss.
type NotFoundData struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

// ParseError creates the error for an unparsable or malformed envelope.
// Fatal to that single request only; the session is unaffected.
func ParseError(cause error) MCPError {
	return Wrap(cause, CodeParseError, "parse error", CategoryProtocol)
}

// InvalidRequest creates the error for a structurally invalid Request object.
func InvalidRequest(reason string) MCPError {
	return Newf(CodeInvalidRequest, CategoryProtocol, "invalid request: %s", reason)
}

// MethodNotFound creates the error for an unrecognized method name.
func MethodNotFound(method string) MCPError {
	return Newf(CodeMethodNotFound, CategoryProtocol, "method not found: %s", method)
}

// NotInitialized rejects a request arriving before negotiation completed.
func NotInitialized(method string) MCPError {
	return Newf(CodeNotInitialized, CategorySession,
		"session not initialized: %s requires a completed initialize handshake", method)
}

// SessionClosed rejects a request on a session that reached its terminal
// state.
func SessionClosed() MCPError {
	return New(CodeSessionClosed, "session closed", CategorySession)
}

// NotFound reports an unknown registry entry for call/read/get.
func NotFound(category, name string) MCPError {
	return WithData(
		Newf(CodeNotFound, CategoryNotFound, "%s not found: %s", category, name),
		&NotFoundData{Category: category, Name: name},
	)
}

// DuplicateName reports a registration collision on (category, name).
func DuplicateName(category, name string) MCPError {
	return Newf(CodeDuplicateName, CategoryValidation,
		"%s already registered: %s", category, name)
}

// MissingParameter reports a required schema field absent from the params.
func MissingParameter(field string) MCPError {
	return WithData(
		Newf(CodeInvalidParams, CategoryValidation, "missing required parameter: %s", field),
		&ValidationData{Field: field, Reason: "required"},
	)
}

// InvalidParameter reports a schema type mismatch on a named field.
func InvalidParameter(field, reason string) MCPError {
	return WithData(
		Newf(CodeInvalidParams, CategoryValidation, "invalid parameter %s: %s", field, reason),
		&ValidationData{Field: field, Reason: reason},
	)
}

// UnknownParameter reports a field the schema does not declare.
func UnknownParameter(field string) MCPError {
	return WithData(
		Newf(CodeInvalidParams, CategoryValidation, "unknown parameter: %s", field),
		&ValidationData{Field: field, Reason: "not declared by schema"},
	)
}

// HandlerExecution wraps a failure raised inside a handler. The wire message
// stays generic; the cause is preserved for logs and debug mode.
func HandlerExecution(method string, cause error) MCPError {
	return Wrap(cause, CodeInternalError,
		fmt.Sprintf("handler failed for %s", method), CategoryHandler)
}

// HandlerPanic wraps a recovered panic from a handler.
func HandlerPanic(method string, recovered any) MCPError {
	return Wrap(fmt.Errorf("panic: %v", recovered), CodeInternalError,
		fmt.Sprintf("handler failed for %s", method), CategoryHandler)
}

// HandlerTimeout reports a handler cut off by the wrapping timeout policy.
func HandlerTimeout(method string, timeout string) MCPError {
	return Newf(CodeHandlerTimeout, CategoryTimeout,
		"handler for %s timed out after %s", method, timeout)
}
