package session

import "errors"

var (
	// ErrNoClassroomSelected indicates an operation that needs a
	// classroom was attempted before one was selected.
	ErrNoClassroomSelected = errors.New("no classroom selected")

	// ErrNoCurrentSession indicates an operation that needs a bound
	// session was attempted without one.
	ErrNoCurrentSession = errors.New("no current session")

	// ErrSessionInProgress indicates a new session or classroom change
	// was requested while a session is still bound.
	ErrSessionInProgress = errors.New("session already in progress")

	// ErrSessionEnded indicates an attempt to bind a finished session.
	// A finished session never becomes current again.
	ErrSessionEnded = errors.New("session has ended")

	// ErrInvalidTransition indicates the operation is not valid in the
	// controller's current state.
	ErrInvalidTransition = errors.New("invalid state transition")
)
