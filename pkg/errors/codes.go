package errors

// JSON-RPC 2.0 standard error codes.
const (
	// CodeParseError indicates the envelope could not be parsed at all.
	CodeParseError int = -32700

	// CodeInvalidRequest indicates the message is not a valid Request object.
	CodeInvalidRequest int = -32600

	// CodeMethodNotFound indicates the method is not recognized.
	CodeMethodNotFound int = -32601

	// CodeInvalidParams indicates the parameters failed schema validation.
	CodeInvalidParams int = -32602

	// CodeInternalError is the generic code for failures raised inside
	// handlers.
	CodeInternalError int = -32603
)

// Implementation-defined codes in the JSON-RPC server range.
const (
	// CodeNotInitialized rejects dispatch before the initialize handshake
	// has completed. The client is expected to negotiate and retry.
	CodeNotInitialized int = -32001

	// CodeNotFound reports an unknown tool, resource, or prompt name.
	CodeNotFound int = -32002

	// CodeSessionClosed rejects dispatch on a closed session. Terminal for
	// that session; the client must reconnect.
	CodeSessionClosed int = -32003

	// CodeHandlerTimeout reports a handler bounded by the timeout policy
	// that did not complete in time.
	CodeHandlerTimeout int = -32004

	// CodeDuplicateName reports a registration collision. It never crosses
	// the wire; registration happens before any session is served.
	CodeDuplicateName int = -32005
)

// nameByCode backs Name lookups for logging and tests.
var nameByCode = map[int]string{
	CodeParseError:     "ParseError",
	CodeInvalidRequest: "InvalidRequest",
	CodeMethodNotFound: "MethodNotFound",
	CodeInvalidParams:  "InvalidParams",
	CodeInternalError:  "HandlerExecutionError",
	CodeNotInitialized: "NotInitialized",
	CodeNotFound:       "NotFound",
	CodeSessionClosed:  "SessionClosed",
	CodeHandlerTimeout: "HandlerTimeout",
	CodeDuplicateName:  "DuplicateName",
}

// CodeName returns the symbolic name of an error code.
func CodeName(code int) string {
	if name, ok := nameByCode[code]; ok {
		return name
	}
	return "UnknownError"
}
