package app

import "errors"

var (
	// ErrAlreadyMounted indicates Mount was called twice without an
	// intervening Unmount.
	ErrAlreadyMounted = errors.New("application already mounted")

	// ErrNotMounted indicates Unmount was called without a mount.
	ErrNotMounted = errors.New("application not mounted")

	// ErrClassroomNotFound indicates the requested classroom id is not
	// in the backend's classroom list.
	ErrClassroomNotFound = errors.New("classroom not found")
)
