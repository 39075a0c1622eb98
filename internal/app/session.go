package app

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/panelreplay/internal/domain"
	"github.com/bft-labs/panelreplay/internal/ports"
)

// Session is the live connection owned by one replay run.
// Only the driver mutates it; State is safe to call from any goroutine.
type Session struct {
	address string
	conn    ports.Conn

	mu      sync.RWMutex
	state   domain.SessionState
	running atomic.Bool

	closeOnce sync.Once
	closeErr  error

	logger ports.Logger
	events ports.EventHandler
}

func newSession(address string, conn ports.Conn, logger ports.Logger, events ports.EventHandler) *Session {
	s := &Session{
		address: address,
		conn:    conn,
		state:   domain.SessionDisconnected,
		logger:  logger,
		events:  events,
	}
	_ = s.transitionTo(domain.SessionConnected, "connected")
	return s
}

// Address returns the remote address of the session.
func (s *Session) Address() string {
	return s.address
}

// State returns the current session state.
func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// transitionTo moves the session to a new state.
// Returns an error if the transition is not valid.
func (s *Session) transitionTo(next domain.SessionState, reason string) error {
	s.mu.Lock()
	prev := s.state

	valid := false
	switch prev {
	case domain.SessionDisconnected:
		valid = next == domain.SessionConnected && s.conn != nil
	case domain.SessionConnected:
		valid = next == domain.SessionFaulted || next == domain.SessionDisconnected
	case domain.SessionFaulted:
		valid = next == domain.SessionDisconnected
	}
	if !valid {
		s.mu.Unlock()
		return fmt.Errorf("invalid session transition %s -> %s", prev, next)
	}

	s.state = next
	s.mu.Unlock()

	// Emit event outside of lock
	if s.events != nil {
		s.events.OnStateChange(prev, next)
	}

	s.logger.Debug("session state",
		ports.String("address", s.address),
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}

// fault marks the session broken. It is a no-op unless the session is connected.
func (s *Session) fault(reason string) {
	if s.State() == domain.SessionConnected {
		_ = s.transitionTo(domain.SessionFaulted, reason)
	}
}

// acquire claims the session for one RunSequence call.
func (s *Session) acquire() bool {
	return s.running.CompareAndSwap(false, true)
}

func (s *Session) release() {
	s.running.Store(false)
}

// close closes the connection once and reports the close error only the first time.
func (s *Session) close() error {
	first := false
	s.closeOnce.Do(func() {
		first = true
		s.closeErr = s.conn.Close()
		_ = s.transitionTo(domain.SessionDisconnected, "shutdown")
	})
	if !first {
		return nil
	}
	return s.closeErr
}
