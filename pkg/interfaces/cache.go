package interfaces

import (
	"classwatch/pkg/types"
)

// RecoveryCache is the durable local store for operator-entered class
// metadata. Read failures (missing key, malformed value) resolve to
// absent, never to an error; only infrastructure failures surface.
type RecoveryCache interface {
	// LoadClassInfo returns the last-saved class info. ok is false when
	// nothing usable is stored.
	LoadClassInfo() (info *types.ClassSessionInfo, ok bool, err error)

	// SaveClassInfo overwrites the stored class info.
	SaveClassInfo(info *types.ClassSessionInfo) error

	// Get and Set expose raw keys for collaborators (auth user, auth
	// token) without interpreting the stored values.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error

	// Close releases the underlying store.
	Close() error
}
