package api

import (
	"errors"
	"fmt"
)

// Transport-level failures. Both are transient from the caller's point
// of view: a poll retries on its next tick, a command is surfaced once.
var (
	ErrBackendUnreachable = errors.New("backend unreachable")
	ErrMalformedResponse  = errors.New("malformed backend response")
)

// StatusError is a non-2xx backend response, carrying the backend's
// detail message when one was present.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}
