// Package protocol defines the wire-level types of the MCP JSON-RPC 2.0
// binding: the request/response envelope, the recognized method names, and
// the payload shapes exchanged during the handshake and feature calls.
//
// The package is deliberately free of behavior. Request IDs are kept as raw
// bytes so a response always echoes the exact token the client sent,
// whether it was a string or a number.
package protocol
