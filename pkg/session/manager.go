package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jamiat-it/tracker-mcp/pkg/protocol"
)

// Policy selects the session lifecycle model. Both policies share the same
// dispatcher logic; the policy only decides how sessions are created and
// retired.
type Policy int

const (
	// PolicyPersistent binds a session to a transport-provided token; the
	// session survives across requests until closed or expired.
	PolicyPersistent Policy = iota

	// PolicyStateless creates a fresh session per request. Such a session
	// is usable only for initialize unless PreReady is set, so a genuinely
	// stateless deployment either re-negotiates every request or opts into
	// the PreReady trust assumption.
	PolicyStateless
)

// Config configures a Manager.
type Config struct {
	Policy Policy

	// PreReady marks stateless sessions Ready at creation, skipping the
	// handshake. This is the documented out-of-band trust assumption for
	// stateless deployments behind a trusted ingress; it has no effect
	// under PolicyPersistent.
	PreReady bool

	// TTL bounds how long a persistent session may sit idle before the
	// cleanup loop retires it. Zero disables expiry.
	TTL time.Duration

	// CleanupInterval is how often expired sessions are collected.
	// Defaults to one minute when TTL is set.
	CleanupInterval time.Duration

	Logger *slog.Logger
}

// Manager owns session creation, lookup, and teardown.
type Manager struct {
	policy   Policy
	preReady bool
	ttl      time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	cleanupStop chan struct{}
	stopOnce    sync.Once
}

// NewManager creates a session manager and, when expiry is configured,
// starts its cleanup loop.
func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		policy:      cfg.Policy,
		preReady:    cfg.PreReady,
		ttl:         cfg.TTL,
		logger:      logger,
		sessions:    make(map[string]*Session),
		cleanupStop: make(chan struct{}),
	}

	if cfg.Policy == PolicyPersistent && cfg.TTL > 0 {
		interval := cfg.CleanupInterval
		if interval <= 0 {
			interval = time.Minute
		}
		go m.cleanupLoop(interval)
	}

	return m
}

// Policy returns the configured lifecycle policy.
func (m *Manager) Policy() Policy { return m.policy }

// Create returns a new Uninitialized session. Under PolicyPersistent the
// session is retained for later lookup by its token; under PolicyStateless
// it lives only as long as the request that created it.
func (m *Manager) Create() *Session {
	sess := newSession()

	if m.policy == PolicyPersistent {
		m.mu.Lock()
		m.sessions[sess.ID()] = sess
		m.mu.Unlock()
		m.logger.Debug("session created", "session_id", sess.ID())
	}

	return sess
}

// Get returns the session bound to a transport token.
func (m *Manager) Get(token string) (*Session, bool) {
	m.mu.RLock()
	sess, ok := m.sessions[token]
	m.mu.RUnlock()
	return sess, ok
}

// GetOrCreate resolves a transport-provided token to its session, creating
// a fresh one when the token is empty or unknown. Used by transports that
// reuse a connection identity.
func (m *Manager) GetOrCreate(token string) *Session {
	if token != "" {
		if sess, ok := m.Get(token); ok {
			return sess
		}
	}
	return m.Create()
}

// Acquire is the transport entry point: under PolicyStateless every request
// gets a fresh session (pre-marked Ready when configured); under
// PolicyPersistent the token is resolved against the session table.
func (m *Manager) Acquire(token string, serverCaps protocol.CapabilitySet) *Session {
	if m.policy == PolicyStateless {
		sess := newSession()
		if m.preReady {
			sess.markReady(serverCaps)
		}
		return sess
	}
	return m.GetOrCreate(token)
}

// Close transitions the named session to Closed and removes it.
func (m *Manager) Close(token string) bool {
	m.mu.Lock()
	sess, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()

	if !ok {
		return false
	}
	sess.Close()
	m.logger.Info("session closed", "session_id", token)
	return true
}

// Release retires a session after its request completes. Persistent
// sessions are retained; stateless ones are closed immediately.
func (m *Manager) Release(sess *Session) {
	if m.policy == PolicyStateless {
		sess.Close()
	}
}

// Count reports the number of live persistent sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every session and stops the cleanup loop.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.cleanupStop) })

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (m *Manager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.expireIdle()
		case <-m.cleanupStop:
			return
		}
	}
}

// expireIdle retires persistent sessions idle beyond the TTL.
func (m *Manager) expireIdle() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*Session
	for token, sess := range m.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(m.sessions, token)
			expired = append(expired, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
		m.logger.Info("session expired", "session_id", sess.ID())
	}
}
