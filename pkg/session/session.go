// Package session models the negotiated state of one logical client
// connection: the capability handshake state machine and a manager that owns
// session lifetimes under an explicit lifecycle policy (persistent or
// stateless-per-request).
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	mcperrors "github.com/jamiat-it/tracker-mcp/pkg/errors"
	"github.com/jamiat-it/tracker-mcp/pkg/protocol"
)

// State is the handshake state of a session. Transitions are strictly
// forward: Uninitialized → Negotiating → Ready → Closed, with Closed
// reachable from any state.
type State int

const (
	StateUninitialized State = iota
	StateNegotiating
	StateReady
	StateClosed
)

// String returns the state name for logs and tests.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateNegotiating:
		return "negotiating"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session scopes one client connection's negotiated state. A session is
// owned by a single logical connection and is never shared across
// connections; its mutex only orders the connection's own request handling
// against lifecycle teardown.
type Session struct {
	id string

	mu         sync.Mutex
	state      State
	preReady   bool
	clientInfo *protocol.ClientInfo
	clientCaps protocol.CapabilitySet
	negotiated protocol.CapabilitySet
	createdAt  time.Time
	lastUsedAt time.Time

	// In-flight request cancel functions, released on Close.
	inflight   map[uint64]context.CancelFunc
	inflightID uint64
}

func newSession() *Session {
	now := time.Now()
	return &Session{
		id:         uuid.NewString(),
		state:      StateUninitialized,
		createdAt:  now,
		lastUsedAt: now,
		inflight:   make(map[uint64]context.CancelFunc),
	}
}

// ID returns the opaque session token.
func (s *Session) ID() string { return s.id }

// State returns the current handshake state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ClientInfo returns the identity the client declared during initialize.
func (s *Session) ClientInfo() *protocol.ClientInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientInfo
}

// NegotiatedCapabilities returns the capability set fixed at negotiation.
func (s *Session) NegotiatedCapabilities() protocol.CapabilitySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.negotiated
}

// BeginNegotiation records the client's declared capability set and moves
// the session to Negotiating. The server advertises its own fixed set
// regardless of the client's; no merging is performed.
//
// Pre-ready sessions are born Ready and accept initialize idempotently:
// the client's declaration is recorded, the fixed capability set is
// advertised, and the session stays Ready. Stateless deployments mint a
// fresh pre-ready session per request, so a conforming client's opening
// initialize must succeed rather than trip the strict-forward rule.
func (s *Session) BeginNegotiation(serverCaps protocol.CapabilitySet, params *protocol.InitializeParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return mcperrors.SessionClosed()
	case StateUninitialized:
		s.state = StateNegotiating
	case StateReady:
		if !s.preReady {
			return mcperrors.InvalidRequest("initialize received on an already negotiating session")
		}
		// Stay Ready; only the client's declaration is recorded.
	default:
		return mcperrors.InvalidRequest("initialize received on an already negotiating session")
	}

	s.negotiated = serverCaps.Clone()
	if params != nil {
		s.clientInfo = params.ClientInfo
		s.clientCaps = params.Capabilities.Clone()
	}
	s.lastUsedAt = time.Now()
	return nil
}

// ConfirmInitialized completes the handshake on receipt of the initialized
// notification and moves the session to Ready. Confirming an already Ready
// session is a no-op.
func (s *Session) ConfirmInitialized() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateNegotiating:
		s.state = StateReady
		s.lastUsedAt = time.Now()
		return nil
	case StateReady:
		return nil
	case StateClosed:
		return mcperrors.SessionClosed()
	default:
		return mcperrors.NotInitialized(protocol.MethodInitialized)
	}
}

// RequireReady gates method dispatch: it fails with NotInitialized before
// the handshake completes and with SessionClosed afterwards.
func (s *Session) RequireReady(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateReady:
		s.lastUsedAt = time.Now()
		return nil
	case StateClosed:
		return mcperrors.SessionClosed()
	default:
		return mcperrors.NotInitialized(method)
	}
}

// markReady skips negotiation for stateless pre-ready deployments. The
// trade-off is documented on Manager: the deployment trusts its ingress.
func (s *Session) markReady(serverCaps protocol.CapabilitySet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = StateReady
	s.preReady = true
	s.negotiated = serverCaps.Clone()
}

// TrackRequest registers an in-flight request's cancel function so Close can
// cancel cooperative handlers. The returned release function must be called
// when the request completes.
func (s *Session) TrackRequest(cancel context.CancelFunc) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		// Already torn down; cancel immediately.
		cancel()
		return func() {}
	}

	s.inflightID++
	id := s.inflightID
	s.inflight[id] = cancel

	return func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
	}
}

// Close transitions the session to its terminal state, cancelling any
// in-flight handler invocations. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	cancels := make([]context.CancelFunc, 0, len(s.inflight))
	for _, c := range s.inflight {
		cancels = append(cancels, c)
	}
	s.inflight = make(map[uint64]context.CancelFunc)
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// idleSince reports the last time the session served a request.
func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsedAt
}
