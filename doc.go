// Package trackermcp is the root of the Jamiat IT department tracker, an MCP
// (Model Context Protocol, revision 2025-03-26) server exposing the project
// catalog to AI hosts over streamable HTTP.
//
// # Layout
//
// The protocol core lives under pkg/ and is domain-agnostic:
//
//   - pkg/protocol: JSON-RPC envelope and MCP wire types
//   - pkg/errors: the error taxonomy with stable JSON-RPC codes
//   - pkg/registry: the tool/resource/prompt registry and schema validation
//   - pkg/session: the handshake state machine and lifecycle policies
//   - pkg/dispatch: method routing, validation, and handler invocation
//   - pkg/httpserver: the HTTP transport binding
//   - pkg/observability: OpenTelemetry tracing and Prometheus metrics
//   - pkg/client: a small HTTP client for tests and examples
//
// The tracker domain sits on top:
//
//   - pkg/catalog: the project catalog store
//   - pkg/tracker: tool, resource, and prompt registrations
//   - cmd/tracker-mcp: the server binary
//
// # Running
//
// The binary is configured through the environment; see cmd/tracker-mcp:
//
//	LISTEN_ADDR=:8000 SESSION_POLICY=persistent go run ./cmd/tracker-mcp
//
// Clients connect to POST /mcp, probe liveness on GET /healthz, and scrape
// metrics from the address in METRICS_ADDR.
package trackermcp
