package sync

import "errors"

var (
	ErrEngineAlreadyRunning = errors.New("synchronization engine already running")
	ErrEngineNotRunning     = errors.New("synchronization engine not running")
)
