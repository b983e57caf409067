package realtime

import (
	"fmt"
	"sync"
)

// State of one connection.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition is returned for a move the state machine does not allow.
type ErrInvalidTransition struct {
	From, To State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("realtime: invalid transition %s -> %s", e.From, e.To)
}

var transitions = map[State][]State{
	StateConnecting:     {StateAuthenticating, StateClosed},
	StateAuthenticating: {StateConnected, StateClosed},
	StateConnected:      {StateClosed},
}

// Session tracks one connection through
// Connecting → Authenticating → Connected → Closed.
type Session struct {
	mu      sync.Mutex
	state   State
	userID  uint64
	channel Channel
}

func NewSession(ch Channel) *Session {
	return &Session{state: StateConnecting, channel: ch}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID is zero until the session is Connected.
func (s *Session) UserID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) Channel() Channel { return s.channel }

func (s *Session) authenticating() error { return s.moveTo(StateAuthenticating, 0) }

func (s *Session) connected(userID uint64) error { return s.moveTo(StateConnected, userID) }

// close moves to Closed and returns the state it left.
func (s *Session) close() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	if prev == StateClosed {
		return prev, ErrInvalidTransition{From: prev, To: StateClosed}
	}
	s.state = StateClosed
	return prev, nil
}

func (s *Session) moveTo(to State, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, allowed := range transitions[s.state] {
		if allowed == to {
			s.state = to
			if to == StateConnected {
				s.userID = userID
			}
			return nil
		}
	}
	return ErrInvalidTransition{From: s.state, To: to}
}
