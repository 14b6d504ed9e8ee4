package interfaces

import "errors"

// ErrSessionNotFound indicates the backend no longer knows the session
// id a command addressed.
var ErrSessionNotFound = errors.New("session not found")
