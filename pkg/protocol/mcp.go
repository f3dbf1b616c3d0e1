package protocol

const (
	// ProtocolRevision is the protocol revision advertised during the
	// initialize handshake.
	ProtocolRevision = "2025-03-26"

	// Methods for lifecycle management
	MethodInitialize        = "initialize"
	MethodInitialized       = "notifications/initialized"
	MethodInitializedLegacy = "initialized"
	MethodPing              = "ping"

	// Methods for server features
	MethodListTools     = "tools/list"
	MethodCallTool      = "tools/call"
	MethodListResources = "resources/list"
	MethodReadResource  = "resources/read"
	MethodListPrompts   = "prompts/list"
	MethodGetPrompt     = "prompts/get"
)

// CapabilityType identifies a feature set a client or server supports.
type CapabilityType string

const (
	// CapabilityTools indicates the server supports tools
	CapabilityTools CapabilityType = "tools"

	// CapabilityResources indicates the server supports resources
	CapabilityResources CapabilityType = "resources"

	// CapabilityPrompts indicates the server supports prompts
	CapabilityPrompts CapabilityType = "prompts"

	// CapabilityLogging indicates the server supports log forwarding
	CapabilityLogging CapabilityType = "logging"
)

// CapabilitySet is one side's declared feature tokens. It is produced once
// during negotiation and never mutated afterwards.
type CapabilitySet map[string]bool

// Clone returns an independent copy of the set.
func (c CapabilitySet) Clone() CapabilitySet {
	out := make(CapabilitySet, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Has reports whether a feature token is present and enabled.
func (c CapabilitySet) Has(capability CapabilityType) bool {
	return c[string(capability)]
}

// InitializeParams defines the parameters for the initialize request.
type InitializeParams struct {
	ProtocolVersion string        `json:"protocolVersion"`
	Capabilities    CapabilitySet `json:"capabilities,omitempty"`
	ClientInfo      *ClientInfo   `json:"clientInfo,omitempty"`
}

// ClientInfo identifies the connecting client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult defines the response for the initialize request. The
// capability set is the server's fixed set, advertised regardless of what
// the client declared.
type InitializeResult struct {
	ProtocolVersion string        `json:"protocolVersion"`
	Capabilities    CapabilitySet `json:"capabilities"`
	ServerInfo      ServerInfo    `json:"serverInfo"`
}

// ServerInfo identifies this server to clients.
type ServerInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// PingResult is the (empty) response for ping.
type PingResult struct{}
