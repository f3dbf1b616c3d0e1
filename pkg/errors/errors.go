// Package errors provides structured error handling for the protocol core.
// It defines the error taxonomy of the dispatch boundary: every failure that
// can cross the wire maps to a stable JSON-RPC error code, and handler
// failures are wrapped so their internals can be redacted before leaving the
// process.
package errors

import (
	"fmt"
)

// Category classifies an error for handling and metrics labels.
type Category string

const (
	CategoryProtocol   Category = "protocol"
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategorySession    Category = "session"
	CategoryHandler    Category = "handler"
	CategoryTimeout    Category = "timeout"
)

// MCPError is implemented by every error the dispatcher converts into a
// JSON-RPC error object.
type MCPError interface {
	error

	// Code returns the stable JSON-RPC error code.
	Code() int

	// Message returns the human-readable, wire-safe error message.
	Message() string

	// Data returns structured error data for programmatic handling.
	Data() any

	// Category returns the error category for classification.
	Category() Category

	// Unwrap returns the underlying error for error chain traversal.
	Unwrap() error
}

// baseError implements the MCPError interface.
type baseError struct {
	code     int
	message  string
	data     any
	category Category
	cause    error
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.message, e.cause.Error())
	}
	return e.message
}

func (e *baseError) Code() int          { return e.code }
func (e *baseError) Message() string    { return e.message }
func (e *baseError) Data() any          { return e.data }
func (e *baseError) Category() Category { return e.category }
func (e *baseError) Unwrap() error      { return e.cause }

// New creates a new MCPError with the specified code and message.
func New(code int, message string, category Category) MCPError {
	return &baseError{code: code, message: message, category: category}
}

// Newf creates a new MCPError with a formatted message.
func Newf(code int, category Category, format string, args ...any) MCPError {
	return &baseError{code: code, message: fmt.Sprintf(format, args...), category: category}
}

// Wrap wraps an existing error as an MCPError.
func Wrap(err error, code int, message string, category Category) MCPError {
	return &baseError{code: code, message: message, category: category, cause: err}
}

// WithData returns a copy of err carrying structured data.
func WithData(err MCPError, data any) MCPError {
	base := &baseError{
		code:     err.Code(),
		message:  err.Message(),
		category: err.Category(),
		cause:    err.Unwrap(),
		data:     data,
	}
	return base
}

// AsMCPError extracts an MCPError from an error chain.
func AsMCPError(err error) (MCPError, bool) {
	for err != nil {
		if mcpErr, ok := err.(MCPError); ok {
			return mcpErr, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// IsCode reports whether an error carries a specific error code.
func IsCode(err error, code int) bool {
	if mcpErr, ok := AsMCPError(err); ok {
		return mcpErr.Code() == code
	}
	return false
}
