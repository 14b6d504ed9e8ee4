package interfaces

import (
	"context"

	"classwatch/pkg/types"
)

// PushChannel is the long-lived server-to-client notification
// connection. Notifications are invalidation signals; consumers fetch
// the corresponding resource out of band.
type PushChannel interface {
	// Connect dials the channel and begins delivering notifications to
	// the handler. Delivery stops when the context is cancelled, the
	// channel is closed, or the connection fails; the closed callback
	// fires exactly once in every case.
	Connect(ctx context.Context, handler func(types.Notification), closed func(error)) error

	// Close tears the connection down.
	Close() error
}
