package session

import "icbd/internal/errors"

// State is the lifecycle state of a session.
type State int

const (
	// Active sessions are connected and processing input.
	Active State = iota
	// Closing sessions have had their descriptor closed but are still
	// referenced by a pending name resolution.
	Closing
	// Closed sessions have been released.
	Closed
)

func (st State) String() string {
	switch st {
	case Active:
		return "active"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Resolving reports whether a name resolution still references s.
func (s *Session) Resolving() bool { return s.resolving }

// BeginResolve marks an asynchronous resolution as outstanding.  It
// returns false if the session is no longer active.
func (s *Session) BeginResolve() bool {
	if s.state != Active || s.resolving {
		return false
	}
	s.resolving = true
	return true
}

// RequestClose is called by the drop path once the endpoint has been
// closed.  With no resolution outstanding the session becomes Closed
// and release is true: the caller must release it now.  Otherwise it
// becomes Closing and the release is left to ResolveDone.  Sessions
// that are not active yield ErrSessionClosed.
func (s *Session) RequestClose() (release bool, err error) {
	if s.state != Active {
		return false, errors.ErrSessionClosed
	}
	if s.resolving {
		s.state = Closing
		return false, nil
	}
	s.state = Closed
	return true, nil
}

// ResolveDone is called when the outstanding resolution completes.  It
// returns true when a close was requested meanwhile: the session is
// now Closed and the caller must release it instead of using the
// result.
func (s *Session) ResolveDone() (release bool) {
	if !s.resolving {
		return false
	}
	s.resolving = false
	if s.state == Closing {
		s.state = Closed
		return true
	}
	return false
}
